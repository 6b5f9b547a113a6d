package fetch

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher downloads documents over FTP. Credentials come from the
// URL userinfo; login is anonymous otherwise.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{opts: opts}
}

type ftpTarget struct {
	host string
	path string
	user string
	pass string
}

// parseFTPURL extracts the dial address, path, and credentials from an FTP URL.
func parseFTPURL(rawURL string) (ftpTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpTarget{}, eris.Wrap(err, "fetch: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return ftpTarget{}, eris.Errorf("fetch: expected ftp scheme, got %q", u.Scheme)
	}

	host := u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	if u.Path == "" {
		return ftpTarget{}, eris.New("fetch: empty path in ftp url")
	}

	target := ftpTarget{host: host, path: u.Path, user: "anonymous", pass: "anonymous@"}
	if u.User != nil {
		target.user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			target.pass = p
		}
	}
	return target, nil
}

// ftpConnReader wraps an FTP response and connection so that closing the reader
// also closes the FTP response and disconnects from the server.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "fetch: close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "fetch: quit ftp connection")
	}
	return nil
}

// Download connects to the FTP server, retrieves the file, and returns a reader.
// The caller must close the returned ReadCloser to release the FTP connection.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	target, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("fetch: ftp connecting",
		zap.String("host", target.host),
		zap.String("path", target.path))

	conn, err := ftp.Dial(target.host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: ftp dial")
	}

	if err := conn.Login(target.user, target.pass); err != nil {
		conn.Quit()
		return nil, eris.Wrap(err, "fetch: ftp login")
	}

	resp, err := conn.Retr(target.path)
	if err != nil {
		conn.Quit()
		return nil, eris.Wrap(err, "fetch: ftp retrieve")
	}

	return &ftpConnReader{resp: resp, conn: conn}, nil
}

// DownloadToFile downloads the FTP URL into path. The file appears only
// once complete. Returns bytes written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, ftpURL, path string) (int64, error) {
	rc, err := f.Download(ctx, ftpURL)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck

	return placeFile(path, rc)
}
