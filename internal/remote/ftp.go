package remote

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"github.com/jlaffaye/ftp"

	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/logger"
)

const defaultFTPPort = 21

// FTPClient reads the drop over FTP, optionally with explicit TLS.
type FTPClient struct {
	conn *ftp.ServerConn
	log  logger.Logger
}

// DialFTP connects and logs in.
func DialFTP(ctx context.Context, cfg Config, log logger.Logger) (*FTPClient, error) {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	port := cfg.Port
	if port == 0 {
		port = defaultFTPPort
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))

	opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if cfg.Timeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(cfg.Timeout))
	}
	if cfg.ExplicitTLS {
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{
			ServerName: cfg.Host,
			MinVersion: tls.VersionTLS12,
		}))
	}
	if cfg.DisableEPSV {
		opts = append(opts, ftp.DialWithDisabledEPSV(true))
	}

	conn, err := ftp.Dial(addr, opts...)
	if err != nil {
		return nil, errors.TransferError(fmt.Errorf("ftp: connect %s: %w", addr, err), addr)
	}

	if cfg.Username != "" {
		if err := conn.Login(cfg.Username, cfg.Password); err != nil {
			if quitErr := conn.Quit(); quitErr != nil {
				log.Debug("quit after failed login", logger.Error(quitErr))
			}
			return nil, errors.TransferError(fmt.Errorf("ftp: login: %w", err), addr)
		}
	}

	log.Debug("connected", logger.String("host", cfg.Host))
	return &FTPClient{conn: conn, log: log}, nil
}

// List implements Client.
func (c *FTPClient) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.TransferError(err, dir)
	}
	list, err := c.conn.List(dir)
	if err != nil {
		return nil, errors.TransferError(fmt.Errorf("ftp: list %s: %w", dir, err), dir)
	}

	entries := make([]Entry, 0, len(list))
	for _, e := range list {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		kind := KindOther
		switch e.Type {
		case ftp.EntryTypeFile:
			kind = KindFile
		case ftp.EntryTypeFolder:
			kind = KindDir
		case ftp.EntryTypeLink:
			kind = KindLink
		}
		entries = append(entries, Entry{
			Name:       e.Name,
			Kind:       kind,
			ModifiedAt: e.Time,
			Size:       int64(e.Size), // #nosec G115 -- listing sizes fit in int64
		})
	}
	return entries, nil
}

// Fetch implements Client.
func (c *FTPClient) Fetch(ctx context.Context, remotePath, localPath string) error {
	resp, err := c.conn.Retr(remotePath)
	if err != nil {
		return errors.TransferError(fmt.Errorf("ftp: retrieve %s: %w", remotePath, err), remotePath)
	}

	copyErr := writeAtomic(localPath, ctxReader{ctx: ctx, r: resp})
	// Close completes the transfer on the control connection, so it runs before reporting
	closeErr := resp.Close()
	if copyErr != nil {
		return errors.TransferError(fmt.Errorf("ftp: fetch %s: %w", remotePath, copyErr), remotePath)
	}
	if closeErr != nil {
		return errors.TransferError(fmt.Errorf("ftp: finish %s: %w", remotePath, closeErr), remotePath)
	}

	c.log.Debug("fetched",
		logger.String("remote_path", remotePath),
		logger.String("local_path", localPath))
	return nil
}

// Close implements Client.
func (c *FTPClient) Close() error {
	return c.conn.Quit()
}
