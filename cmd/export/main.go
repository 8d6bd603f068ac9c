package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/mail-ledger/internal/auth"
	"github.com/dvloznov/mail-ledger/internal/export"
	"github.com/dvloznov/mail-ledger/internal/infra/bigquery"
	"github.com/dvloznov/mail-ledger/internal/ledger"
	"github.com/dvloznov/mail-ledger/internal/logger"
	"github.com/dvloznov/mail-ledger/internal/syncer"
)

func main() {
	log := logger.New()

	accessToken := flag.String("access-token", "", "Gmail access token (skips the refresh flow)")
	clientID := flag.String("client-id", os.Getenv("MAILLEDGER_CLIENT_ID"), "OAuth client id (or MAILLEDGER_CLIENT_ID)")
	clientSecret := flag.String("client-secret", os.Getenv("MAILLEDGER_CLIENT_SECRET"), "OAuth client secret (or MAILLEDGER_CLIENT_SECRET)")
	refreshToken := flag.String("refresh-token", os.Getenv("MAILLEDGER_REFRESH_TOKEN"), "OAuth refresh token (or MAILLEDGER_REFRESH_TOKEN)")
	bqProject := flag.String("bq-project", "", "BigQuery project holding the mirrored ledger (optional)")
	bqDataset := flag.String("bq-dataset", "mailledger", "BigQuery dataset holding the mirrored ledger")
	month := flag.String("month", "", "Month to export, YYYY-MM (default: latest synced month)")
	outPath := flag.String("out", "", "Output CSV file path (required)")
	gcsBucket := flag.String("gcs-bucket", "", "Upload the report to this GCS bucket (optional)")
	sync := flag.Bool("sync", false, "Run a sync before exporting instead of relying on the mirror")
	flag.Parse()

	if *clientID == "" {
		log.Fatal().Msg("Error: --client-id is required")
	}
	if *accessToken == "" && *refreshToken == "" {
		log.Fatal().Msg("Error: either --access-token or --refresh-token is required")
	}
	if *outPath == "" {
		log.Fatal().Msg("Error: --out is required")
	}
	if !*sync && *bqProject == "" {
		log.Fatal().Msg("Error: need --sync or --bq-project as the event source")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg := ledger.Config{
		Provider: auth.NewGoogleProvider(*clientID, *clientSecret, *refreshToken),
		Runner:   syncer.GmailRunner{},
	}
	if *bqProject != "" {
		store, err := bigquery.NewStore(ctx, *bqProject, *bqDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize mirror store")
		}
		defer store.Close()
		cfg.Mirror = store
	}
	engine := ledger.New(cfg)

	var err error
	if *accessToken != "" {
		err = engine.LoginWithToken(ctx, *accessToken)
	} else {
		err = engine.Login(ctx, false)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Login failed")
	}

	if *sync {
		if err := engine.SyncEvents(ctx, ledger.OriginManual, false); err != nil {
			log.Fatal().Err(err).Msg("Sync failed")
		}
	}

	target := *month
	if target == "" {
		months := engine.Months()
		if len(months) == 0 {
			log.Fatal().Msg("No events available to export")
		}
		target = months[0]
	}

	data, err := engine.ExportCSV(target)
	if err != nil {
		log.Fatal().Err(err).Msg("Rendering CSV failed")
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		log.Fatal().Err(err).Str("path", *outPath).Msg("Writing CSV failed")
	}

	if *gcsBucket != "" {
		object := export.ObjectName(engine.CurrentStatus().User.Email, target)
		if err := export.Upload(ctx, *gcsBucket, object, data); err != nil {
			log.Fatal().Err(err).Msg("Uploading CSV failed")
		}
		log.Info().Str("bucket", *gcsBucket).Str("object", object).Msg("Report uploaded")
	}

	summary := engine.MonthlySummaryFor(target)
	fmt.Printf("Exported %d events for %s to %s\n", summary.EventCount, target, *outPath)
}
