package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aryanguptajsm/fluxora/internal/storage"
	pkgzip "github.com/aryanguptajsm/fluxora/pkg/zip"
)

const (
	filePrefix       = "fluxora"
	maxDownloadBytes = 50 << 20
)

var ErrNoImages = errors.New("download: entry has no images")

// Downloader saves generated images to local storage.
type Downloader struct {
	Store *storage.FileStore
	HTTP  *http.Client
	Now   func() time.Time
}

func NewDownloader(store *storage.FileStore) *Downloader {
	return &Downloader{
		Store: store,
		HTTP:  &http.Client{Timeout: 60 * time.Second},
		Now:   time.Now,
	}
}

// FileName builds fluxora-<unixms>-<index>.<ext>.
func FileName(at time.Time, index int, ext string) string {
	return fmt.Sprintf("%s-%d-%d.%s", filePrefix, at.UnixMilli(), index, ext)
}

// Save fetches one image and writes it under the generated file name. It
// returns the path of the written file.
func (d *Downloader) Save(ctx context.Context, imageURL string, index int) (string, error) {
	data, mimeType, err := d.fetch(ctx, imageURL)
	if err != nil {
		return "", err
	}
	name := FileName(d.now(), index, extension(mimeType, imageURL))
	return d.Store.Write(ctx, name, data)
}

// Export bundles every image of entry together with its prompt into a zip.
func (d *Downloader) Export(ctx context.Context, entry Entry) (string, error) {
	if len(entry.Images) == 0 {
		return "", ErrNoImages
	}
	at := d.now()
	assets := make([]pkgzip.Asset, 0, len(entry.Images)+1)
	for i, img := range entry.Images {
		data, mimeType, err := d.fetch(ctx, img.URL)
		if err != nil {
			return "", fmt.Errorf("download: image %d: %w", i+1, err)
		}
		assets = append(assets, pkgzip.Asset{
			Filename: FileName(at, i+1, extension(mimeType, img.URL)),
			MIME:     mimeType,
			Data:     data,
			Modified: img.Timestamp,
		})
	}
	assets = append(assets, pkgzip.Asset{
		Filename: "prompt.txt",
		MIME:     "text/plain",
		Data:     []byte(entry.Prompt + "\n"),
		Modified: entry.CreatedAt,
	})
	archive, err := pkgzip.ArchiveAssets(assets)
	if err != nil {
		return "", err
	}
	return d.Store.Write(ctx, fmt.Sprintf("%s-%d-%d.zip", filePrefix, at.UnixMilli(), entry.ID), archive)
}

func (d *Downloader) fetch(ctx context.Context, raw string) ([]byte, string, error) {
	if strings.HasPrefix(raw, "data:") {
		return decodeDataURL(raw)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "", fmt.Errorf("download: unsupported image url %q", raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, "", fmt.Errorf("download: build request: %w", err)
	}
	client := d.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download: fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download: fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("download: read image: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, "", errors.New("download: image too large")
	}
	mimeType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

// decodeDataURL handles data:<mime>;base64,<payload>.
func decodeDataURL(raw string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return nil, "", errors.New("download: malformed data url")
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, "", errors.New("download: data url is not base64")
	}
	mimeType := strings.TrimSuffix(header, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("download: decode data url: %w", err)
	}
	return data, mimeType, nil
}

func extension(mimeType, raw string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	}
	if !strings.HasPrefix(raw, "data:") {
		if u, err := url.Parse(raw); err == nil {
			if ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), "."); ext != "" && len(ext) <= 4 {
				return ext
			}
		}
	}
	return "png"
}

func (d *Downloader) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}
