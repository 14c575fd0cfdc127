package pipeline

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/masvision/shelfsync/internal/catalog"
	"github.com/masvision/shelfsync/internal/descindex"
	"github.com/masvision/shelfsync/internal/enrich"
	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/logger"
	"github.com/masvision/shelfsync/internal/parser"
	"github.com/masvision/shelfsync/internal/remote"
)

const localDirPermissions = 0o755

// cycle is the state machine of one scope.
type cycle struct {
	o        *Orchestrator
	scope    Scope
	store    CatalogStore
	log      logger.Logger
	state    State
	enricher *enrich.Enricher
	result   CycleResult
}

func (c *cycle) enter(next State) {
	c.log.Debug("state transition",
		logger.String("scope", c.scope.ID),
		logger.String("from", c.state.String()),
		logger.String("to", next.String()))
	c.state = next
}

func (c *cycle) run(ctx context.Context) error {
	if c.scope.Fetch {
		c.enter(StateFetchingRemote)
		if err := c.fetch(ctx); err != nil {
			return err
		}
	}

	c.enter(StateParsingProducts)
	products, err := c.parseProducts(ctx)
	if err != nil {
		return err
	}

	c.enter(StateLoadingProducts)
	n, err := c.store.ReplaceProducts(ctx, products)
	if err != nil {
		return err
	}
	c.result.Products = n
	c.o.metrics.RecordRowsLoaded(c.scope.ID, catalog.ProductsTable, n)

	c.enter(StateParsingPlanograms)
	entries, err := c.parsePlanograms(ctx)
	if err != nil {
		return err
	}

	c.enter(StateLoadingPlanograms)
	n, err = c.store.ReplacePlanograms(ctx, entries)
	if err != nil {
		return err
	}
	c.result.Planograms = n
	c.o.metrics.RecordRowsLoaded(c.scope.ID, catalog.PlanogramsTable, n)

	c.enter(StateIdle)
	return nil
}

// finish settles the result and logs the outcome.
func (c *cycle) finish(err error) {
	c.result.Duration = time.Since(c.result.StartedAt)
	if err == nil {
		c.result.State = StateIdle
		c.log.Info("sync cycle completed",
			logger.String("scope", c.scope.ID),
			logger.Int("products", c.result.Products),
			logger.Int("planograms", c.result.Planograms),
			logger.Int("skipped_files", len(c.result.Skipped)),
			logger.Duration("duration", c.result.Duration))
		return
	}

	c.result.FailedIn = c.state
	c.result.State = StateFailed
	c.result.Err = err

	fields := []logger.Field{
		logger.String("scope", c.scope.ID),
		logger.String("state", c.state.String()),
		logger.Error(err),
	}
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		fields = append(fields, logger.String("category", string(ee.Category)))
		if file, ok := ee.GetContext()["file"].(string); ok {
			fields = append(fields, logger.String("file", file))
		}
	}
	c.state = StateFailed
	c.log.Error("sync cycle failed", fields...)
}

// fetch refreshes the local copies from the drop over one connection.
func (c *cycle) fetch(ctx context.Context) error {
	client, err := c.o.dial(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			c.log.Warn("failed to close remote connection", logger.Error(err))
		}
	}()

	removed, err := remote.ClearLocal(c.scope.Planograms.LocalDir, parser.PlanogramExtensions)
	if err != nil {
		return err
	}
	files, err := remote.FetchDirectory(ctx, client, c.scope.Planograms.RemoteDir, c.scope.Planograms.LocalDir, parser.PlanogramExtensions)
	if err != nil {
		return err
	}
	c.o.metrics.RecordFilesFetched(c.scope.ID, catalog.PlanogramsTable, len(files))
	c.log.Info("planograms fetched",
		logger.String("remote_dir", c.scope.Planograms.RemoteDir),
		logger.Int("removed", removed),
		logger.Int("fetched", len(files)))

	if err := c.fetchBarcodes(ctx, client); err != nil {
		return err
	}
	c.o.metrics.RecordFilesFetched(c.scope.ID, catalog.ProductsTable, 1)

	if c.scope.Descriptions.Enabled && c.scope.Descriptions.RemotePath != "" {
		if err := fetchInto(ctx, client, c.scope.Descriptions.RemotePath, c.scope.Descriptions.LocalPath); err != nil {
			return err
		}
		c.log.Debug("description index fetched", logger.String("remote_path", c.scope.Descriptions.RemotePath))
	}
	return nil
}

func (c *cycle) fetchBarcodes(ctx context.Context, client remote.Client) error {
	src := c.scope.Barcodes
	remotePath := path.Join(src.RemoteDir, src.RemoteFile)
	if src.Latest {
		entries, err := client.List(ctx, src.RemoteDir)
		if err != nil {
			return err
		}
		latest, ok := remote.SelectLatest(entries, parser.ExtCSV)
		if !ok {
			return errors.TransferError(fmt.Errorf("no %s file in %s", parser.ExtCSV, src.RemoteDir), src.RemoteDir)
		}
		remotePath = path.Join(src.RemoteDir, latest.Name)
	}

	if err := fetchInto(ctx, client, remotePath, src.LocalFile); err != nil {
		return err
	}
	c.log.Info("barcode file fetched",
		logger.String("remote_path", remotePath),
		logger.String("local_path", src.LocalFile))
	return nil
}

func fetchInto(ctx context.Context, client remote.Client, remotePath, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), localDirPermissions); err != nil {
		return errors.New(fmt.Errorf("create %s: %w", filepath.Dir(localPath), err)).
			Category(errors.CategoryFileIO).
			Build()
	}
	return client.Fetch(ctx, remotePath, localPath)
}

// descriptions builds this cycle's index, or nil when the scope has none.
func (c *cycle) descriptions() (*descindex.Index, error) {
	src := c.scope.Descriptions
	if !src.Enabled {
		return nil, nil
	}
	index, err := descindex.BuildFile(src.LocalPath, src.Encoding)
	if err != nil {
		return nil, err
	}
	c.log.Debug("description index built", logger.Int("entries", index.Len()))
	return index, nil
}

func (c *cycle) parseProducts(ctx context.Context) ([]catalog.Product, error) {
	index, err := c.descriptions()
	if err != nil {
		return nil, err
	}
	if index == nil {
		c.enricher = enrich.New(nil)
	} else {
		c.enricher = enrich.New(index)
	}

	delimited := parser.NewDelimitedParser(c.scope.StagingDir)
	res, err := parser.ParseDirectory(ctx, filepath.Dir(c.scope.Barcodes.LocalFile), []string{parser.ExtCSV},
		delimited.ParseProducts, c.log)
	if err != nil {
		return nil, err
	}
	c.skipped(catalog.ProductsTable, res.Failed)
	return c.enricher.Products(res.Items), nil
}

func (c *cycle) parsePlanograms(ctx context.Context) ([]catalog.PlanogramEntry, error) {
	tabular := parser.NewTabularParser(c.o.skipRows)
	res, err := parser.ParseDirectory(ctx, c.scope.Planograms.LocalDir, parser.PlanogramExtensions,
		tabular.ParseFile, c.log)
	if err != nil {
		return nil, err
	}
	c.skipped(catalog.PlanogramsTable, res.Failed)
	return c.enricher.Planograms(res.Items), nil
}

func (c *cycle) skipped(kind string, failed []parser.FileError) {
	if len(failed) == 0 {
		return
	}
	c.o.metrics.RecordParseErrors(c.scope.ID, kind, len(failed))
	for _, f := range failed {
		c.result.Skipped = append(c.result.Skipped, f.Path)
	}
}
