package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

var defaultSeedTags = []string{"work", "personal", "ideas", "archive"}

// SeedNotes creates SEED_COUNT notes (default 50) spread over SEED_TAGS
func SeedNotes() error {
	count := 50
	if raw := os.Getenv("SEED_COUNT"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid SEED_COUNT %q", raw)
		}
		count = n
	}

	tags := defaultSeedTags
	if raw := os.Getenv("SEED_TAGS"); raw != "" {
		tags = strings.Split(raw, ",")
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	ctx := scriptContext(os.Getenv("USER_ID"))
	for i := 0; i < count; i++ {
		tag := tags[i%len(tags)]
		req := noteRequest(
			fmt.Sprintf("Seed note %d", i+1),
			fmt.Sprintf("Seeded note number %d tagged %s", i+1, tag),
			[]string{tag},
		)
		if _, err := e.notes.CreateNote(ctx, req); err != nil {
			return fmt.Errorf("note %d: %w", i+1, err)
		}
	}

	e.log.Infow("seeded notes", "count", count, "tags", tags)
	return nil
}
