package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/config"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/infra/clock"
	pg "classifieds-marketplace/internal/infra/db/postgres"
	"classifieds-marketplace/internal/infra/events"
	"classifieds-marketplace/internal/infra/web"
	"classifieds-marketplace/internal/usecase"
)

// seed prepares a local environment: optionally wipes the tables, creates a
// few sellers with listings and prints bearer tokens for them.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	reset := flag.Bool("reset", false, "truncate all tables first")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	if *reset {
		logger.Info().Msg("wiping tables")
		if _, err := pool.Exec(ctx, `
			TRUNCATE listing_reports, listing_contacts, listing_viewers, listing_engagement, listing_notifications, payment_callbacks, payment_transactions, listings, accounts
			RESTART IDENTITY CASCADE`); err != nil {
			logger.Fatal().Err(err).Msg("truncate")
		}
	}

	catalog, err := model.NewPlanCatalog(cfg.Listing.Currency, cfg.Plans)
	if err != nil {
		logger.Fatal().Err(err).Msg("plan catalog")
	}
	clk := clock.System{}
	accountRepo := pg.NewAccountRepo(pool)
	quotaUC := usecase.NewQuotaUseCase(accountRepo, cfg.Listing.FreeListingCap)
	accountUC := usecase.NewAccountUseCase(accountRepo, quotaUC, clk, &logger)
	listingUC := usecase.NewListingUseCase(pg.NewListingRepo(pool), accountRepo, quotaUC, catalog, cfg.Bands(), pg.NewTxManager(pool), clk, events.NewLogPublisher(&logger), &logger)

	sellers := []struct {
		id, name, phone string
		listings        []usecase.CreateListingInput
	}{
		{"seller-1", "Wanjiku Motors", "0712345678", []usecase.CreateListingInput{
			{Tier: model.TierFree, Fields: model.ListingFields{Title: "Toyota Vitz 2014", Category: "Vehicles", Location: "Nairobi", Price: 650000, Currency: cfg.Listing.Currency}},
			{Tier: model.TierPremium, Days: 7, Fields: model.ListingFields{Title: "Mazda Demio 2016", Category: "Vehicles", Location: "Nairobi", Price: 780000, Currency: cfg.Listing.Currency}},
		}},
		{"seller-2", "Coast Furniture", "0722000111", []usecase.CreateListingInput{
			{Tier: model.TierFree, Fields: model.ListingFields{Title: "5-seater sofa", Category: "Furniture", Location: "Mombasa", Price: 35000, Currency: cfg.Listing.Currency}},
			{Tier: model.TierFree, Draft: true, Fields: model.ListingFields{Title: "Dining table", Category: "Furniture", Location: "Mombasa", Price: 18000, Currency: cfg.Listing.Currency}},
		}},
	}

	auth := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AdminRole)
	for _, s := range sellers {
		name, phone := s.name, s.phone
		if _, err := accountUC.UpdateProfile(ctx, s.id, usecase.ProfileUpdate{DisplayName: &name, Phone: &phone}); err != nil {
			logger.Fatal().Err(err).Str("account", s.id).Msg("profile")
		}
		for _, in := range s.listings {
			v, err := listingUC.Create(ctx, s.id, in)
			if err != nil {
				logger.Warn().Err(err).Str("account", s.id).Str("title", in.Fields.Title).Msg("listing not created")
				continue
			}
			fmt.Printf("  %-9s %-26s %-8s %s\n", s.id, v.Listing.Title, v.Listing.Tier, v.State)
		}
		tok, err := auth.Mint(s.id, "", 7*24*time.Hour)
		if err != nil {
			logger.Fatal().Err(err).Msg("mint")
		}
		fmt.Printf("%s token: %s\n", s.id, tok)
	}

	admin, err := auth.Mint("admin-1", cfg.Auth.AdminRole, 7*24*time.Hour)
	if err != nil {
		logger.Fatal().Err(err).Msg("mint")
	}
	fmt.Printf("admin-1 token: %s\n", admin)
}
