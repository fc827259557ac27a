package internal

import (
	"fmt"
	"os"

	"github.com/vidinfra/docvault/internal/api/dto"
)

// PurgeDeletedNotes hard deletes notes that sat in the trash for longer than
// OLDER_THAN (default 720h)
func PurgeDeletedNotes() error {
	olderThan := os.Getenv("OLDER_THAN")
	if olderThan == "" {
		olderThan = "720h"
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	resp, err := e.notes.PurgeDeletedNotes(scriptContext(os.Getenv("USER_ID")), dto.PurgeDeletedNotesRequest{OlderThan: olderThan})
	if err != nil {
		return err
	}

	fmt.Printf("Purged %d notes deleted before %s\n", resp.Purged, resp.Before.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}
