// Package exports builds downloadable artifacts: subscriber CSVs and zipped
// carousel bundles.
package exports

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/adamonsea/narrative-forge/pkg/models"
)

var subscriberHeader = []string{"email", "name", "status", "verified_at", "subscribed_at"}

// WriteSubscribersCSV streams one header row plus one row per subscriber.
func WriteSubscribersCSV(w io.Writer, subs []models.EmailSubscriber) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(subscriberHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range subs {
		row := []string{
			s.Email,
			s.Name,
			string(s.Status),
			formatTime(s.VerifiedAt),
			s.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
