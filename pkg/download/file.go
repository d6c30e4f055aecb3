package download

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cperrin88/dlkeep/internal/logger"
	"github.com/cperrin88/dlkeep/pkg/errors"
	"github.com/cperrin88/dlkeep/pkg/fsutil"
	dlhttp "github.com/cperrin88/dlkeep/pkg/http"
)

const (
	writeBufferSize = 1 << 20
	readChunkSize   = 32 << 10
)

// DownloadFile streams url into targetDir/fileName.
//
// Every request asks for the bytes after those already written, so after a
// disconnect the transfer continues at the exact offset instead of starting
// over. onBytes is called with the size of each chunk written (a delta, not a
// running total). The file must not exist yet.
func DownloadFile(
	ctx context.Context,
	client dlhttp.Client,
	url, targetDir, fileName string,
	policy RetryPolicy,
	onBytes func(uint64),
) error {
	filePath := filepath.Join(targetDir, fileName)

	file, err := fsutil.CreateExclusive(filePath)
	if err != nil {
		if os.IsExist(err) {
			err = fmt.Errorf("%w: %w", errors.ErrFileAlreadyExists, err)
		}
		return errors.WrapKind(errors.ErrFilesystem, err, "failed to open file %q", filePath)
	}
	defer func() { _ = file.Close() }()

	writer := bufio.NewWriterSize(file, writeBufferSize)
	buf := make([]byte, readChunkSize)
	var (
		totalReceived uint64
		retryCount    int
		restartCount  int
	)

	for {
		body, err := client.GetRange(ctx, url, totalReceived)
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrapf(ctx.Err(), "download of %q aborted", filePath)
			}
			retryCount++
			if retryCount > policy.MaxRetries {
				return fmt.Errorf("failed to download file %q: %w: %w", filePath, errors.ErrRetriesExhausted, err)
			}
			logger.Warn("Request failed, retrying", logger.Fields{
				"file":    fileName,
				"attempt": retryCount,
				"offset":  totalReceived,
				"backoff": policy.Backoff.String(),
				"error":   err.Error(),
			})
			if err := policy.wait(ctx); err != nil {
				return errors.Wrapf(err, "download of %q aborted", filePath)
			}
			continue
		}

		err = streamBody(body, writer, buf, &totalReceived, onBytes)
		if err == nil {
			break
		}
		if !errors.Is(err, errors.ErrStreamInterrupted) {
			return errors.Wrapf(err, "failed to download file %q", filePath)
		}
		if ctx.Err() != nil {
			return errors.Wrapf(ctx.Err(), "download of %q aborted", filePath)
		}
		restartCount++
		if policy.streamRestartsExhausted(restartCount) {
			return fmt.Errorf("failed to download file %q: %w: %w", filePath, errors.ErrStreamRestartsExhausted, err)
		}
		logger.Debug("Stream interrupted, resuming", logger.Fields{
			"file":   fileName,
			"offset": totalReceived,
			"error":  err.Error(),
		})
	}

	if err := writer.Flush(); err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "failed to flush file %q", filePath)
	}
	if err := file.Sync(); err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "failed to sync file %q", filePath)
	}
	return nil
}

// streamBody copies body into writer chunk by chunk until EOF. Read failures
// are reported as ErrStreamInterrupted, write failures as ErrFilesystem.
func streamBody(body io.ReadCloser, writer io.Writer, buf []byte, received *uint64, onBytes func(uint64)) error {
	defer func() { _ = body.Close() }()

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := writer.Write(buf[:n]); err != nil {
				return errors.WrapKind(errors.ErrFilesystem, err, "failed to write chunk")
			}
			*received += uint64(n)
			if onBytes != nil {
				onBytes(uint64(n))
			}
		}
		switch {
		case readErr == io.EOF:
			return nil
		case readErr != nil:
			return errors.WrapKind(errors.ErrStreamInterrupted, readErr, "chunk read failed at offset %d", *received)
		}
	}
}
