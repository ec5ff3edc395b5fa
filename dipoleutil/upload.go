/*
Copyright © 2019 the Dipole authors.
This file is part of Dipole.

Dipole is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Dipole is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Dipole.  If not, see <http://www.gnu.org/licenses/>.
*/

package dipoleutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/dipole/cloud"
)

// uploadRetries is the number of times an upload is retried.
const uploadRetries = 5

type uploader struct {
	// files is a set of file path pairs. The first of each pair
	// is a local file path and the second is a blob storage
	// path where it should be uploaded to.
	files [][2]string
	err   error
	dir   string
}

// maybeUpload checks whether the given output file path refers to
// a blob storage location. If it does, then a temporary file location
// is returned. The file will then be uploaded to blob storage when
// uploadOutput is run.
func (u *uploader) maybeUpload(path string) string {
	if u.err != nil || path == "" {
		return path
	}
	if !cloud.IsURL(path) {
		return path
	}
	if u.dir == "" {
		u.dir, u.err = os.MkdirTemp("", "dipole")
		if u.err != nil {
			return ""
		}
	}
	local := filepath.Join(u.dir, fmt.Sprintf("%d_%s", len(u.files), filepath.Base(path)))
	u.files = append(u.files, [2]string{local, path})
	return local
}

// uploadOutput uploads the staged files, retrying failed uploads with
// exponential backoff, and then removes the staging directory.
func (u *uploader) uploadOutput(ctx context.Context, log logrus.FieldLogger) error {
	if u.err != nil {
		return u.err
	}
	if u.dir != "" {
		defer os.RemoveAll(u.dir)
	}
	for _, files := range u.files {
		local, remote := files[0], files[1]
		if _, err := os.Stat(local); os.IsNotExist(err) {
			continue
		}
		b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uploadRetries)
		err := backoff.RetryNotify(
			func() error { return cloud.Upload(ctx, local, remote) },
			b,
			func(err error, d time.Duration) {
				log.WithFields(logrus.Fields{"file": remote, "retry_in": d}).Warnf("upload failed: %v", err)
			},
		)
		if err != nil {
			return fmt.Errorf("dipole: uploading %s: %v", remote, err)
		}
		log.WithField("file", remote).Info("uploaded output")
	}
	return nil
}
