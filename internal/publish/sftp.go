// Package publish distributes finished exports to a remote SFTP server.
package publish

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"cpsroster/internal/config"
	apperrors "cpsroster/internal/errors"
)

const dialTimeout = 20 * time.Second

// Uploader copies local files to the configured SFTP directory
type Uploader struct {
	cfg    config.SFTPConfig
	logger *slog.Logger
}

// NewUploader validates cfg and returns an uploader
func NewUploader(cfg config.SFTPConfig, logger *slog.Logger) (*Uploader, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Password == "" {
		return nil, apperrors.NewConfigError("sftp host, user and password are required", nil)
	}
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	if cfg.RemoteDir == "" {
		cfg.RemoteDir = "/"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{cfg: cfg, logger: logger}, nil
}

func (u *Uploader) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if u.cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	file := u.cfg.KnownHostsFile
	if file == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		file = filepath.Join(home, ".ssh", "known_hosts")
	}
	return knownhosts.New(file)
}

// Upload copies each local file into the remote directory under its base name
func (u *Uploader) Upload(ctx context.Context, localPaths ...string) error {
	cb, err := u.hostKeyCallback()
	if err != nil {
		return apperrors.NewConfigError("failed to load known hosts", err)
	}

	sshCfg := &ssh.ClientConfig{
		User:            u.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(u.cfg.Password)},
		HostKeyCallback: cb,
		Timeout:         dialTimeout,
	}
	addr := net.JoinHostPort(u.cfg.Host, strconv.Itoa(u.cfg.Port))

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return apperrors.NewNetworkError("sftp dial failed", err).WithContext("addr", addr)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, sshCfg)
	if err != nil {
		conn.Close()
		return apperrors.NewNetworkError("ssh handshake failed", err).WithContext("addr", addr)
	}
	sshClient := ssh.NewClient(c, chans, reqs)
	defer sshClient.Close()

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return apperrors.NewNetworkError("failed to start sftp session", err)
	}
	defer client.Close()

	if err := client.MkdirAll(u.cfg.RemoteDir); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to create remote directory %s", u.cfg.RemoteDir), err)
	}

	for _, local := range localPaths {
		if err := ctx.Err(); err != nil {
			return err
		}
		remote := path.Join(u.cfg.RemoteDir, filepath.Base(local))
		n, err := copyFile(client, local, remote)
		if err != nil {
			return apperrors.NewStorageError("sftp upload failed", err).
				WithContext("local", local).
				WithContext("remote", remote)
		}
		u.logger.InfoContext(ctx, "Published file",
			slog.String("local", local),
			slog.String("remote", remote),
			slog.Int64("bytes", n))
	}
	return nil
}

func copyFile(client *sftp.Client, local, remote string) (int64, error) {
	src, err := os.Open(local)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := client.Create(remote)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		return n, err
	}
	return n, dst.Close()
}
