package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

// Months is the part of the client service an export reads from.
type Months interface {
	Month(ctx context.Context, id uuid.UUID, actor client.Actor, p ledger.Period) (*client.Client, *ledger.Month, error)
}

// Item is a single exported file with its local path.
type Item struct {
	Category ledger.CategoryRef
	File     ledger.File
	FilePath string
}

type Config struct {
	// APIToken is sent to the document storage when downloading files.
	APIToken string
	Timeout  time.Duration
}

// Service downloads the documents of a month and renders workbooks.
type Service struct {
	months Months
	http   *resty.Client
	logger *slog.Logger
}

func NewService(months Months, cfg Config, logger *slog.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)

	if cfg.APIToken != "" {
		rc.SetHeader("Authorization", "Token "+cfg.APIToken)
	}

	return &Service{months: months, http: rc, logger: logger}
}

// Export downloads every file of the month into outputDir, one directory per
// category. Files without a URL are listed with an empty path.
func (s *Service) Export(ctx context.Context, id uuid.UUID, actor client.Actor, p ledger.Period, outputDir string) ([]Item, error) {
	_, m, err := s.months.Month(ctx, id, actor, p)
	if err != nil {
		return nil, fmt.Errorf("loading month %s: %w", p, err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var items []Item

	for ref, c := range m.Categories() {
		dir := filepath.Join(outputDir, categoryDir(ref))

		for _, f := range c.Files {
			item := Item{Category: ref, File: f}

			if f.URL != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("creating category directory: %w", err)
				}

				path, err := s.download(ctx, f, dir)
				if err != nil {
					return nil, fmt.Errorf("downloading %s/%s: %w", categoryDir(ref), f.Name, err)
				}

				item.FilePath = path
			}

			items = append(items, item)
		}
	}

	s.logger.Info("month exported",
		"client_id", id,
		"period", p.String(),
		"files", len(items),
	)

	return items, nil
}

func (s *Service) download(ctx context.Context, f ledger.File, dir string) (string, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(f.URL)
	if err != nil {
		return "", &ledger.ExternalServiceError{Service: "storage", Err: err}
	}

	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return "", &ledger.ExternalServiceError{
			Service: "storage",
			Err:     fmt.Errorf("unexpected status code %d for url %s", resp.StatusCode(), f.URL),
		}
	}

	path := filepath.Join(dir, determineFilename(resp.Header().Get("Content-Disposition"), resp.Header().Get("Content-Type"), f))

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}

	return path, nil
}

func determineFilename(disposition, contentType string, f ledger.File) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name, ok := params["filename"]; ok && name != "" {
				return sanitize(filepath.Base(name))
			}
		}
	}

	name := sanitize(f.Name)
	if filepath.Ext(name) != "" {
		return name
	}

	ext := ".pdf"

	if contentType != "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}

	return f.UploadedAt.Format("20060102") + "_" + name + ext
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			return r
		}

		return '_'
	}, name)
}

func categoryDir(ref ledger.CategoryRef) string {
	if ref.Type == ledger.CategoryOther {
		return "other_" + sanitize(ref.Name)
	}

	return string(ref.Type)
}

// GenerateSummary renders the items as a plain text list for an email body.
func (s *Service) GenerateSummary(items []Item) string {
	var sb strings.Builder

	for _, item := range items {
		status := "not downloaded"
		if item.FilePath != "" {
			status = filepath.Base(item.FilePath)
		}

		fmt.Fprintf(&sb, "* %s | %s | %s | %s\n",
			categoryDir(item.Category),
			item.File.Name,
			humanize.IBytes(uint64(max(item.File.SizeBytes, 0))),
			status,
		)
	}

	return sb.String()
}
