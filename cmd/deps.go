package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/argus/internal/artifact"
	"github.com/kozaktomas/argus/internal/config"
	"github.com/kozaktomas/argus/internal/extractor"
	"github.com/kozaktomas/argus/internal/geocode"
	"github.com/kozaktomas/argus/internal/ledger"
	"github.com/kozaktomas/argus/internal/recognition"
	mongostore "github.com/kozaktomas/argus/internal/store/mongo"
)

// services is the fully wired service stack shared by the commands.
type services struct {
	store       *mongostore.Store
	ledger      *ledger.Ledger
	recognition *recognition.Service
}

// buildServices connects to MongoDB and wires the service stack.
// The caller must Close the store when done.
func buildServices(ctx context.Context, cfg *config.Config) (*services, error) {
	st, err := mongostore.Connect(ctx, cfg.Database.URI, cfg.Database.Name)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	led := ledger.New(st.Punches, cfg.Shift.Start, cfg.Shift.End)
	svc := recognition.New(
		st.Employees,
		extractor.NewClient(cfg.Extractor.URL),
		led,
		artifact.NewStore(cfg.Artifacts.Dir),
		geocode.NewClient(cfg.Geocode.URL),
	)

	return &services{store: st, ledger: led, recognition: svc}, nil
}

func (s *services) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}
