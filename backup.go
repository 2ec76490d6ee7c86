package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/grtshw/wedding-invitation/config"
	"github.com/grtshw/wedding-invitation/utils"
	"github.com/pocketbase/pocketbase/core"
)

const appName = "wedding"

// nextBackupTime returns the next occurrence of hour:00 in loc strictly
// after now.
func nextBackupTime(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// backupKey is the object key for a backup archive.
func backupKey(backupName string) string {
	return fmt.Sprintf("%s/database/%s", appName, backupName)
}

// expiredBackups returns keys of objects last modified before cutoff.
func expiredBackups(objects []types.Object, cutoff time.Time) []string {
	var keys []string
	for _, obj := range objects {
		if obj.Key == nil || obj.LastModified == nil {
			continue
		}
		if obj.LastModified.Before(cutoff) {
			keys = append(keys, *obj.Key)
		}
	}
	return keys
}

// scheduleBackups runs a backup every day at cfg.Hour in loc until ctx ends.
func scheduleBackups(ctx context.Context, app core.App, cfg config.Backup, loc *time.Location) {
	if !cfg.Enabled() {
		utils.Logger("backup").Info().Msg("backup storage not configured, scheduler disabled")
		return
	}

	for {
		next := nextBackupTime(time.Now(), cfg.Hour, loc)
		wait := time.Until(next)
		utils.Logger("backup").Info().
			Str("next", next.Format("2006-01-02 15:04 MST")).
			Dur("in", wait.Round(time.Minute)).
			Msg("next backup scheduled")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := runBackup(ctx, app, cfg); err != nil {
			utils.Logger("backup").Error().Err(err).Msg("backup failed")
		}
	}
}

// runBackup creates a PocketBase backup archive and uploads it to S3.
func runBackup(ctx context.Context, app core.App, cfg config.Backup) error {
	if !cfg.Enabled() {
		return fmt.Errorf("backup storage not configured (BACKUP_BUCKET_NAME, BACKUP_ENDPOINT_URL, BACKUP_ACCESS_KEY_ID, BACKUP_SECRET_ACCESS_KEY)")
	}
	utils.Logger("backup").Info().Msg("starting backup")

	backupName := fmt.Sprintf("%s-db-%s.zip", appName, time.Now().Format("2006-01-02"))

	createCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	if err := app.CreateBackup(createCtx, backupName); err != nil {
		return fmt.Errorf("create backup: %w", err)
	}

	backupPath := filepath.Join(app.DataDir(), "backups", backupName)
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup file not found at %s: %w", backupPath, err)
	}

	client, err := newBackupClient(ctx, cfg)
	if err != nil {
		return err
	}

	if err := uploadBackup(ctx, client, cfg.Bucket, backupPath, backupName); err != nil {
		return err
	}

	if err := os.Remove(backupPath); err != nil {
		utils.Logger("backup").Warn().Err(err).Msg("failed to delete local backup")
	}

	cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays)
	if err := cleanOldBackups(ctx, client, cfg.Bucket, cutoff); err != nil {
		utils.Logger("backup").Warn().Err(err).Msg("failed to clean old backups")
	}

	utils.LogAudit(app, utils.AuditEntry{
		Action:       "backup",
		ResourceType: "database",
		ResourceID:   backupName,
		Status:       "success",
	})
	utils.Logger("backup").Info().Str("name", backupName).Msg("backup completed")
	return nil
}

func newBackupClient(ctx context.Context, cfg config.Backup) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
	}), nil
}

func uploadBackup(ctx context.Context, client *s3.Client, bucket, localPath, backupName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open backup file: %w", err)
	}
	defer file.Close()

	key := backupKey(backupName)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("upload to S3: %w", err)
	}

	utils.Logger("backup").Info().Str("bucket", bucket).Str("key", key).Msg("uploaded backup")
	return nil
}

// cleanOldBackups removes archives older than cutoff from the app's prefix.
func cleanOldBackups(ctx context.Context, client *s3.Client, bucket string, cutoff time.Time) error {
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(fmt.Sprintf("%s/database/", appName)),
	})

	var toDelete []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects: %w", err)
		}
		toDelete = append(toDelete, expiredBackups(page.Contents, cutoff)...)
	}

	for _, key := range toDelete {
		_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			utils.Logger("backup").Warn().Err(err).Str("key", key).Msg("failed to delete old backup")
			continue
		}
		utils.Logger("backup").Info().Str("key", key).Msg("deleted old backup")
	}
	return nil
}
