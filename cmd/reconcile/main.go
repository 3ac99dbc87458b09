// Command reconcile finds users whose credential never reached the auth
// store and, with -fix, removes them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"agora/internal/bootstrap"
	"agora/internal/config"
	"agora/internal/repository"
	"agora/internal/service"
)

func main() {
	fix := flag.Bool("fix", false, "delete orphaned identities instead of only listing them")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer func() { _ = rt.Close(ctx) }()

	reconciler := service.NewOrphanReconciler(
		rt.Stores.Main,
		repository.NewUserRepository(rt.Stores.Main),
		repository.NewCredentialRepository(rt.Stores.Auth),
		cfg.OrphanGrace(),
	)

	report, err := reconciler.Run(ctx, *fix)
	if err != nil {
		log.Fatalf("Reconcile failed: %v", err)
	}

	for _, u := range report.Orphans {
		fmt.Printf("orphan: ID %d | %s | %s | created %s\n", u.ID, u.Username, u.Email, u.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("scanned=%d orphans=%d removed=%d\n", report.Scanned, len(report.Orphans), report.Removed)
}
