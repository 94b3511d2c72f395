package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/argus/internal/config"
	"github.com/kozaktomas/argus/internal/geocode"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill-locations",
	Short: "Resolve addresses for punch records that only have coordinates",
	Long: `Find punch records that carry coordinates but no resolved address and
fill the address in via reverse geocoding. Useful after geocoder outages,
when punches degrade to raw coordinate strings.`,
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().Duration("delay", time.Second, "Delay between geocoding requests (Nominatim rate limit)")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	delay, err := cmd.Flags().GetDuration("delay")
	if err != nil {
		return err
	}

	cfg := config.Load()
	ctx := context.Background()
	svcs, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcs.Close(context.Background())

	records, err := svcs.store.Punches.FindMissingAddress(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("All punch records have addresses")
		return nil
	}

	geocoder := geocode.NewClient(cfg.Geocode.URL)
	bar := progressbar.Default(int64(len(records)), "resolving addresses")

	resolved := 0
	for _, rec := range records {
		address := geocoder.Reverse(ctx, *rec.Latitude, *rec.Longitude)
		if err := svcs.store.Punches.UpdateAddress(ctx, rec.ID, address); err != nil {
			fmt.Printf("\nWarning: could not update record %s: %v\n", rec.ID, err)
		} else {
			resolved++
		}
		bar.Add(1)
		time.Sleep(delay)
	}

	fmt.Printf("\nResolved %d of %d addresses\n", resolved, len(records))
	return nil
}
