package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"github.com/urbangulal/urbangulal/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPUploader copies report files to a remote directory over sftp.
type SFTPUploader struct {
	cfg config.SFTPConfig
}

func NewSFTPUploader(cfg config.SFTPConfig) *SFTPUploader {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	return &SFTPUploader{cfg: cfg}
}

func (u *SFTPUploader) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if u.cfg.KnownHosts == "" {
		zap.L().Warn("sftp: known_hosts not configured, host key is not verified", zap.String("host", u.cfg.Host))
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // opt-in via missing known_hosts
	}
	return knownhosts.New(u.cfg.KnownHosts)
}

func (u *SFTPUploader) Upload(ctx context.Context, localPath string) error {
	hostKey, err := u.hostKeyCallback()
	if err != nil {
		return errors.Wrap(err, "load known_hosts")
	}
	clientCfg := &ssh.ClientConfig{
		User:            u.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(u.cfg.Passwd)},
		HostKeyCallback: hostKey,
		Timeout:         15 * time.Second,
	}
	addr := fmt.Sprintf("%s:%d", u.cfg.Host, u.cfg.Port)
	conn, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return errors.Wrapf(err, "ssh dial %s", addr)
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return errors.Wrap(err, "sftp session")
	}
	defer client.Close()

	done := make(chan error, 1)
	go func() { done <- u.copy(client, localPath) }()
	select {
	case <-ctx.Done():
		_ = client.Close()
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (u *SFTPUploader) copy(client *sftp.Client, localPath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	remoteDir := u.cfg.RemoteDir
	if remoteDir == "" {
		remoteDir = "."
	}
	if err := client.MkdirAll(remoteDir); err != nil {
		return errors.Wrapf(err, "mkdir %s", remoteDir)
	}
	remote := path.Join(remoteDir, filepath.Base(localPath))
	dst, err := client.Create(remote)
	if err != nil {
		return errors.Wrapf(err, "create %s", remote)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return errors.Wrapf(err, "write %s", remote)
	}
	zap.L().Info("sftp: report uploaded", zap.String("remote", remote))
	return nil
}
