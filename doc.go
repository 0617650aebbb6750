// Package cxone provides a native Go client for the Checkmarx One REST API.
//
// # Features
//
//   - API key exchange with transparent access-token renewal
//   - Service-based architecture for expandability
//   - Modern Go 1.25+ iterators for pagination
//   - Typed errors for precise error handling
//   - Functional options for flexible configuration
//
// # Quick Start
//
//	client, err := cxone.NewClient(ctx,
//	    cxone.WithAPIKey(apiKey),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// List completed scans from the last week
//	filter := &cxone.ScanFilter{
//	    Statuses:  []cxone.ScanStatus{cxone.StatusCompleted},
//	    SinceDays: 7,
//	}
//
//	for scan, err := range client.Scans.List(ctx, filter) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Printf("Scan: %s (%s)\n", scan.ID, scan.Status)
//	}
//
// # Authentication
//
// The client authenticates with a long-lived API key, exchanged at the
// platform's identity provider for a short-lived access token. The token is
// renewed automatically five minutes before expiry; every request revalidates
// it first, so long pagination runs survive token rollover. The identity
// provider, tenant and service base URL are discovered from token claims and
// can each be overridden with WithIAMURL, WithTenant and WithBaseURL.
//
// # Error Handling
//
// The package uses typed errors that can be inspected with errors.As:
//
//	page, err := client.Projects.ListPage(ctx, nil, nil)
//	if err != nil {
//	    var authErr *cxone.AuthenticationError
//	    if errors.As(err, &authErr) {
//	        // Handle auth failure
//	    }
//	}
//
// # Pagination
//
// Use iterators for automatic pagination:
//
//	// Iterate over all results
//	for project, err := range client.Projects.List(ctx, nil) {
//	    // ...
//	}
//
//	// Collect all results into a slice
//	projects, err := cxone.Collect(client.Projects.List(ctx, nil))
//
//	// Or use manual pagination
//	page, err := client.Projects.ListPage(ctx, nil, &cxone.PageOptions{
//	    Offset: 0,
//	    Limit:  100,
//	})
//
// # Concurrency
//
// A Client issues requests strictly sequentially and renews its token by
// mutating shared session state; callers interleaving calls to one Client
// from multiple goroutines must synchronize externally.
package cxone
