package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/mail-ledger/internal/auth"
	"github.com/dvloznov/mail-ledger/internal/infra/bigquery"
	"github.com/dvloznov/mail-ledger/internal/ledger"
	"github.com/dvloznov/mail-ledger/internal/logger"
	"github.com/dvloznov/mail-ledger/internal/mirror"
	"github.com/dvloznov/mail-ledger/internal/notify"
	"github.com/dvloznov/mail-ledger/internal/syncer"
)

func main() {
	log := logger.New()

	accessToken := flag.String("access-token", "", "Gmail access token (skips the refresh flow)")
	clientID := flag.String("client-id", os.Getenv("MAILLEDGER_CLIENT_ID"), "OAuth client id (or MAILLEDGER_CLIENT_ID)")
	clientSecret := flag.String("client-secret", os.Getenv("MAILLEDGER_CLIENT_SECRET"), "OAuth client secret (or MAILLEDGER_CLIENT_SECRET)")
	refreshToken := flag.String("refresh-token", os.Getenv("MAILLEDGER_REFRESH_TOKEN"), "OAuth refresh token (or MAILLEDGER_REFRESH_TOKEN)")
	bqProject := flag.String("bq-project", "", "BigQuery project for the mirror store (optional)")
	bqDataset := flag.String("bq-dataset", "mailledger", "BigQuery dataset for the mirror store")
	prefsPath := flag.String("prefs", "", "Preferences file path (default: user config dir)")
	full := flag.Bool("full", false, "Force a full resync instead of an incremental one")
	flag.Parse()

	if *clientID == "" {
		log.Fatal().Msg("Error: --client-id is required")
	}
	if *accessToken == "" && *refreshToken == "" {
		log.Fatal().Msg("Error: either --access-token or --refresh-token is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	path := *prefsPath
	if path == "" {
		var err error
		path, err = ledger.DefaultPreferencesPath()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to resolve preferences path")
		}
	}

	var store mirror.Store
	if *bqProject != "" {
		bq, err := bigquery.NewStore(ctx, *bqProject, *bqDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize mirror store")
		}
		defer bq.Close()
		store = bq
	}

	provider := auth.NewGoogleProvider(*clientID, *clientSecret, *refreshToken)
	engine := ledger.New(ledger.Config{
		Provider:        provider,
		Runner:          syncer.GmailRunner{},
		Mirror:          store,
		Notifier:        notify.LogNotifier{},
		PreferencesPath: path,
	})

	var err error
	if *accessToken != "" {
		err = engine.LoginWithToken(ctx, *accessToken)
	} else {
		err = engine.Login(ctx, false)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Login failed")
	}

	if err := engine.SyncEvents(ctx, ledger.OriginManual, *full); err != nil {
		status := engine.CurrentStatus()
		log.Fatal().Err(err).Str("message", status.SyncError).Msg("Sync failed")
	}

	status := engine.CurrentStatus()
	if status.Warning != "" {
		log.Warn().Msg(status.Warning)
	}

	month := engine.SelectedMonth()
	summary := engine.MonthlySummaryFor(month)
	fmt.Printf("Synced %d events. %s: %s in, %s out, net %s\n",
		status.EventCount, month,
		summary.TotalIncome.StringFixed(0),
		summary.TotalExpense.StringFixed(0),
		summary.NetDifference.StringFixed(0))
}
