// Package handlers contains the reusable pieces of the StressSense HTTP
// interface: the composite health checker and the middleware that guards
// the ingestion endpoints.
//
// # Health Checks
//
//	checker := handlers.NewCompositeHealthChecker("0.1.0")
//	checker.AddCheck("database", handlers.NewPingCheck(conn))
//	checker.AddCheck("redis", handlers.NewPingCheck(cache))
//
// # Device Keys
//
// When DEVICE_KEY_HASHES is set, sensor and phone pushes must carry the
// plain key in X-Device-Key:
//
//	auth, err := handlers.NewDeviceKeyAuth(cfg.Auth.DeviceKeyHashes)
//	protected := handlers.Chain(ingest, auth.Middleware)
package handlers
