// Package service is the facade over detection, ingestion, querying and
// persistence. Every operation opens a fresh engine instance and discards
// it on completion; nothing is shared across requests.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/tabq/tabq/internal/engine"
	"github.com/tabq/tabq/internal/format"
	"github.com/tabq/tabq/internal/ingest"
	"github.com/tabq/tabq/internal/observability"
	"github.com/tabq/tabq/internal/persist"
	"github.com/tabq/tabq/internal/query"
)

// PageRequest describes one page load. A non-blank SQL wins over Search.
type PageRequest struct {
	Path   string `json:"path"`
	Offset int64  `json:"offset"`
	Limit  int64  `json:"limit"`
	Search string `json:"search,omitempty"`
	SQL    string `json:"sql,omitempty"`
}

// PageResult is JSON-safe: wide integers are already stringified. Total is
// the unfiltered COUNT(*) of the ingested table.
type PageResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Offset  int64    `json:"offset"`
	Limit   int64    `json:"limit"`
	Total   int64    `json:"total"`
}

type Service struct {
	logger *slog.Logger
	save   persist.Options
}

func New(logger *slog.Logger, save persist.Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, save: save}
}

// LoadPage ingests the file at req.Path and returns one page of the result.
func (s *Service) LoadPage(ctx context.Context, req PageRequest) (PageResult, error) {
	start := time.Now()
	kind := format.Detect(req.Path)
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.Limit <= 0 {
		req.Limit = query.UnboundedLimit
	}

	result, err := s.loadPage(ctx, kind, req)
	observability.ObserveLoad(kind.String(), time.Since(start), err)
	if err != nil {
		s.logger.Error("page load failed",
			slog.String("path", req.Path),
			slog.String("kind", kind.String()),
			slog.Any("error", err))
		return PageResult{}, err
	}
	s.logger.Debug("page loaded",
		slog.String("path", req.Path),
		slog.String("kind", kind.String()),
		slog.Int("rows", len(result.Rows)),
		slog.Int64("total", result.Total),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

func (s *Service) loadPage(ctx context.Context, kind format.Kind, req PageRequest) (PageResult, error) {
	h, err := engine.Open()
	if err != nil {
		return PageResult{}, err
	}
	defer func() { _ = h.Close() }()

	table, err := ingest.Ingest(ctx, h, kind, req.Path)
	if err != nil {
		return PageResult{}, err
	}
	if table.Empty {
		return PageResult{
			Columns: []string{},
			Rows:    [][]any{},
			Offset:  req.Offset,
			Limit:   req.Limit,
		}, nil
	}

	statement := query.Build(query.Page{
		Offset:  req.Offset,
		Limit:   req.Limit,
		Search:  req.Search,
		SQL:     req.SQL,
		Columns: table.Columns,
	})
	result, err := query.Normalize(ctx, h.DB(), statement)
	if err != nil {
		return PageResult{}, err
	}

	return PageResult{
		Columns: result.Columns,
		Rows:    result.Rows,
		Offset:  req.Offset,
		Limit:   req.Limit,
		Total:   result.Total,
	}, nil
}

// ExportToCSV loads the full filtered result and writes it at outPath.
func (s *Service) ExportToCSV(ctx context.Context, path, outPath, search, sqlText string) error {
	result, err := s.LoadPage(ctx, PageRequest{
		Path:   path,
		Offset: 0,
		Limit:  query.UnboundedLimit,
		Search: search,
		SQL:    sqlText,
	})
	if err != nil {
		return err
	}
	if err := persist.ExportCSV(outPath, result.Columns, result.Rows); err != nil {
		s.logger.Error("export failed",
			slog.String("path", path),
			slog.String("out", outPath),
			slog.Any("error", err))
		return err
	}
	s.logger.Info("exported",
		slog.String("path", path),
		slog.String("out", outPath),
		slog.Int("rows", len(result.Rows)))
	return nil
}

// SaveAs writes a materialized table to the format the destination implies.
func (s *Service) SaveAs(ctx context.Context, path string, columns []string, rows [][]any) error {
	kind := format.Detect(path)
	err := persist.Save(ctx, path, columns, rows, s.save)
	observability.ObserveSave(kind.String(), err)
	if err != nil {
		s.logger.Error("save failed",
			slog.String("path", path),
			slog.String("kind", kind.String()),
			slog.Any("error", err))
		return err
	}
	s.logger.Info("saved",
		slog.String("path", path),
		slog.String("kind", kind.String()),
		slog.Int("rows", len(rows)))
	return nil
}
