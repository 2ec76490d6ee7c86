package utils

import (
	"errors"
	"fmt"

	"github.com/pocketbase/pocketbase/core"
)

// EncryptAllGuestPII encrypts plain-text guest phones and fills the
// phone index.
func EncryptAllGuestPII(app core.App) error {
	if !IsEncryptionEnabled() {
		return errors.New("ENCRYPTION_KEY not set - cannot encrypt data")
	}
	cmdLog := Logger("encrypt-pii")

	records, err := app.FindAllRecords(CollectionGuests)
	if err != nil {
		return fmt.Errorf("failed to fetch guests: %w", err)
	}
	cmdLog.Info().Int("guests", len(records)).Msg("starting PII encryption")

	migrated, skipped, failed := 0, 0, 0
	for _, record := range records {
		changed, err := EncryptGuestPII(record)
		if err != nil {
			cmdLog.Warn().Err(err).Str("guest_id", record.Id).Msg("failed to encrypt")
			failed++
			continue
		}
		if !changed {
			skipped++
			continue
		}
		if err := app.SaveNoValidate(record); err != nil {
			cmdLog.Error().Err(err).Str("guest_id", record.Id).Msg("failed to save")
			failed++
			continue
		}
		migrated++
	}

	cmdLog.Info().Int("encrypted", migrated).Int("unchanged", skipped).Int("errors", failed).Msg("PII encryption complete")
	if failed > 0 {
		return fmt.Errorf("%d guests failed to encrypt", failed)
	}
	return nil
}

// RotateGuestPII re-encrypts guest phones with the current key. Values
// written under ENCRYPTION_KEY_PREVIOUS are still readable during the run.
func RotateGuestPII(app core.App) error {
	if !IsEncryptionEnabled() {
		return errors.New("ENCRYPTION_KEY not set - cannot rotate keys")
	}
	cmdLog := Logger("rotate-keys")

	records, err := app.FindAllRecords(CollectionGuests)
	if err != nil {
		return fmt.Errorf("failed to fetch guests: %w", err)
	}
	cmdLog.Info().Int("guests", len(records)).Msg("starting key rotation")

	rotated, failed := 0, 0
	for _, record := range records {
		if err := ReencryptGuestPII(record); err != nil {
			cmdLog.Warn().Err(err).Str("guest_id", record.Id).Msg("failed to re-encrypt")
			failed++
			continue
		}
		if err := app.SaveNoValidate(record); err != nil {
			cmdLog.Error().Err(err).Str("guest_id", record.Id).Msg("failed to save")
			failed++
			continue
		}
		rotated++
	}

	cmdLog.Info().Int("rotated", rotated).Int("errors", failed).Msg("key rotation complete")
	if failed > 0 {
		return fmt.Errorf("%d guests failed to rotate", failed)
	}
	return nil
}
