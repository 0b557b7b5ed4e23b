package streak

// ══════════════════════════════════════════════════════════════════════════════
// MILESTONES
// ══════════════════════════════════════════════════════════════════════════════

// Milestone - награда за достижение рубежа серии.
type Milestone struct {
	// Days - длина серии, на которой выдаётся награда.
	Days int

	// XPReward - награда XP.
	XPReward int

	// Badge - название значка.
	Badge string
}

// NextMilestone - следующий непройденный рубеж.
type NextMilestone struct {
	// Milestone - сам рубеж.
	Milestone Milestone

	// DaysRemaining - дней до рубежа.
	DaysRemaining int
}

// MilestoneDays - фиксированные рубежи серий в днях.
var MilestoneDays = []int{3, 7, 14, 30, 60, 100, 200, 365}

// milestoneTables - награды рубежей по типам серий. Типы без таблицы
// (недельные и месячные цели) рубежей не имеют.
var milestoneTables = map[Type]map[int]Milestone{
	TypeDailyLogin: {
		3:   {Days: 3, XPReward: 50, Badge: "Early Bird"},
		7:   {Days: 7, XPReward: 100, Badge: "Week Warrior"},
		14:  {Days: 14, XPReward: 200, Badge: "Fortnight Fighter"},
		30:  {Days: 30, XPReward: 500, Badge: "Monthly Master"},
		60:  {Days: 60, XPReward: 1000, Badge: "Bi-Monthly Boss"},
		100: {Days: 100, XPReward: 2000, Badge: "Century Champion"},
		200: {Days: 200, XPReward: 5000, Badge: "Double Century"},
		365: {Days: 365, XPReward: 10000, Badge: "Yearly Legend"},
	},
	TypeDailyPractice: {
		3:   {Days: 3, XPReward: 75, Badge: "Practice Starter"},
		7:   {Days: 7, XPReward: 150, Badge: "Weekly Worker"},
		14:  {Days: 14, XPReward: 300, Badge: "Fortnight Focus"},
		30:  {Days: 30, XPReward: 750, Badge: "Monthly Master"},
		60:  {Days: 60, XPReward: 1500, Badge: "Bi-Monthly Boss"},
		100: {Days: 100, XPReward: 3000, Badge: "Century Champion"},
		200: {Days: 200, XPReward: 7500, Badge: "Double Century"},
		365: {Days: 365, XPReward: 15000, Badge: "Yearly Legend"},
	},
	TypePerfectScore: {
		3:   {Days: 3, XPReward: 100, Badge: "Perfect Start"},
		7:   {Days: 7, XPReward: 200, Badge: "Perfect Week"},
		14:  {Days: 14, XPReward: 400, Badge: "Perfect Fortnight"},
		30:  {Days: 30, XPReward: 1000, Badge: "Perfect Month"},
		60:  {Days: 60, XPReward: 2000, Badge: "Perfect Bi-Month"},
		100: {Days: 100, XPReward: 4000, Badge: "Perfect Century"},
		200: {Days: 200, XPReward: 10000, Badge: "Perfect Double"},
		365: {Days: 365, XPReward: 20000, Badge: "Perfect Year"},
	},
}

// MilestoneFor возвращает рубеж для типа серии и длины days,
// если такой рубеж определён.
func MilestoneFor(streakType Type, days int) (Milestone, bool) {
	table, ok := milestoneTables[streakType]
	if !ok {
		return Milestone{}, false
	}
	m, ok := table[days]
	return m, ok
}

// NextMilestoneFor возвращает ближайший непройденный рубеж для текущей
// длины серии. Возвращает nil, если все рубежи пройдены или тип серии
// рубежей не имеет.
func NextMilestoneFor(streakType Type, currentCount int) *NextMilestone {
	table, ok := milestoneTables[streakType]
	if !ok {
		return nil
	}
	for _, days := range MilestoneDays {
		if days > currentCount {
			m := table[days]
			return &NextMilestone{
				Milestone:     m,
				DaysRemaining: days - currentCount,
			}
		}
	}
	return nil
}
