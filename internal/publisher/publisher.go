// Package publisher uploads finished audio artifacts and hands back the link
// listeners will use.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/book-expert/lingocast/internal/core"
	"github.com/book-expert/lingocast/internal/fileutil"
	"github.com/book-expert/logger"
)

// Publisher moves audio artifacts into the configured object store.
type Publisher struct {
	store core.ObjectStore
	log   *logger.Logger
}

// New creates a Publisher. A nil store is allowed; every Publish call then
// fails with core.ErrUploadNotConfigured.
func New(store core.ObjectStore, log *logger.Logger) *Publisher {
	return &Publisher{
		store: store,
		log:   log,
	}
}

// Configured reports whether an object store is wired in.
func (p *Publisher) Configured() bool {
	return p.store != nil
}

// ObjectName builds the remote name for an episode: the sanitized title, the
// upload time in epoch seconds, and the artifact extension.
func ObjectName(title string, now time.Time, ext string) string {
	return fileutil.SafeName(title) + "_" + strconv.FormatInt(now.Unix(), 10) + ext
}

// Publish uploads the file at localPath under objectName and returns its public
// URL. The local file is left in place.
func (p *Publisher) Publish(ctx context.Context, localPath, objectName string) (string, error) {
	if p.store == nil {
		return "", core.ErrUploadNotConfigured
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read artifact %s: %w", core.ErrUploadFailed, localPath, err)
	}

	contentType := fileutil.AudioContentType(filepath.Base(localPath))

	p.log.Info("Uploading %s (%d bytes, %s) as %s", localPath, len(data), contentType, objectName)

	err = p.store.Upload(ctx, objectName, data, contentType)
	if err != nil {
		if errors.Is(err, core.ErrUploadFailed) {
			return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
		}

		return "", fmt.Errorf("%w: %s: %w", core.ErrUploadFailed, objectName, err)
	}

	publicURL, err := p.store.PublicURL(objectName)
	if err != nil {
		return "", fmt.Errorf("%w: failed to resolve public URL for %s: %w", core.ErrUploadFailed, objectName, err)
	}

	publicURL = NormalizeURL(publicURL)

	p.log.Info("Upload successful. Public URL: %s", publicURL)

	return publicURL, nil
}

// NormalizeURL trims surrounding whitespace and a dangling query marker.
func NormalizeURL(raw string) string {
	return strings.TrimSuffix(strings.TrimSpace(raw), "?")
}
