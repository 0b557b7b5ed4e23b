// Package handlers contains HTTP handler interfaces, implementations, and middleware.
//
// This package provides:
//   - Health check interfaces and implementations
//   - Practice batch ingestion for offline clients
//   - Reusable middleware components
//   - API key authentication with bcrypt-hashed keys
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(pool))
//	checker.AddCheck("cache", handlers.NewCacheCheck(cache))
//	checker.AddCheck("directory", handlers.NewDirectoryCheck(directoryClient))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("Health check failed: %s", status.Message)
//	}
//
// # Practice Ingestion
//
// The WebhookHandler interface accepts batches of practice events, e.g. from
// a mobile client flushing its offline queue:
//
//	handler := handlers.NewPracticeWebhookHandler(func(ctx context.Context, e handlers.PracticeEventDTO) error {
//	    _, err := recordPractice.Handle(ctx, toCommand(e))
//	    return err
//	})
//	handler.SetErrorHandler(func(err error) { log.Print(err) })
//
//	err := handler.HandlePracticeBatch(ctx, payload)
//
// A failing event does not abort the batch; all failures are joined into the
// returned error so the client can decide what to replay.
//
// # Middleware
//
// The package provides several reusable middleware components:
//
//	// API key authentication (keys stored as bcrypt hashes)
//	auth := handlers.NewAPIKeyAuth("X-API-Key", []string{hashedKey})
//	protected := auth.Middleware(myHandler)
//
//	// Request timeout
//	withTimeout := handlers.TimeoutMiddleware(30 * time.Second)(myHandler)
//
//	// Security headers
//	secure := handlers.SecurityHeadersMiddleware(myHandler)
//
//	// Chain multiple middleware
//	handler := handlers.ChainHandler(
//	    myHandler,
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.NoCacheMiddleware,
//	    auth.Middleware,
//	)
//
// # Best Practices
//
// When implementing health checks:
//   - Use timeouts to prevent slow checks from blocking the response
//   - Include critical dependencies like database and cache
//   - Keep checks fast (< 1 second ideally)
//   - Return detailed information for debugging
//
// When ingesting practice batches:
//   - Validate the webhook secret before reading the body
//   - Keep batches bounded; reject oversized payloads early
//   - Preserve event order, streak accounting depends on timestamps
//
// When using middleware:
//   - Apply security middleware early in the chain
//   - Apply authentication before authorization
//   - Use request size limits to prevent DoS attacks
//   - Add proper timeout handling for all endpoints
package handlers
