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

package cloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"gocloud.dev/blob"
)

// ReadBlob reads the blob at the given URL.
func ReadBlob(ctx context.Context, name string) ([]byte, error) {
	bucket, key, err := open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer bucket.Close()
	return readBlob(ctx, bucket, key)
}

// Upload copies the local file localPath to the blob at the given URL.
func Upload(ctx context.Context, localPath, name string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("cloud: uploading %s: %v", localPath, err)
	}
	defer f.Close()
	bucket, key, err := open(ctx, name)
	if err != nil {
		return err
	}
	defer bucket.Close()
	return writeBlob(ctx, bucket, key, f)
}

// Download copies the blob at the given URL to the local file localPath.
func Download(ctx context.Context, name, localPath string) error {
	bucket, key, err := open(ctx, name)
	if err != nil {
		return err
	}
	defer bucket.Close()
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	defer r.Close()
	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("cloud: downloading %s: %v", name, err)
	}
	if _, err = io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("cloud: downloading %s: %v", name, err)
	}
	return f.Close()
}

func open(ctx context.Context, name string) (*blob.Bucket, string, error) {
	b, key, err := SplitURL(name)
	if err != nil {
		return nil, "", err
	}
	bucket, err := OpenBucket(ctx, b)
	if err != nil {
		return nil, "", err
	}
	return bucket, key, nil
}

// readBlob reads the given blob from the given bucket.
func readBlob(ctx context.Context, bucket *blob.Bucket, key string) ([]byte, error) {
	var b bytes.Buffer
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	defer r.Close()
	if _, err = io.Copy(&b, r); err != nil {
		return nil, fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	return b.Bytes(), nil
}

// writeBlob copies data to the given blob.
func writeBlob(ctx context.Context, bucket *blob.Bucket, key string, data io.Reader) error {
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("cloud: creating writer for blob %s: %v", key, err)
	}
	if _, err = io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("cloud: copying blob %s: %v", key, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("cloud: writing blob %s: %v", key, err)
	}
	return nil
}
