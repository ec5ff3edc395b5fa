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

// Package cloud reads and writes files in blob storage buckets.
package cloud

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob" // gs:// buckets
	_ "gocloud.dev/blob/s3blob"  // s3:// buckets
)

// IsURL reports whether name is a blob URL with a supported provider
// rather than a local file path.
func IsURL(name string) bool {
	u, err := url.Parse(name)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "file", "gs", "s3":
		return true
	}
	return false
}

// SplitURL splits a blob URL in the format 'provider://bucket/key' into
// the bucket URL and the key. For the "file" provider the bucket is the
// directory holding the file.
func SplitURL(name string) (bucketURL, key string, err error) {
	u, err := url.Parse(name)
	if err != nil {
		return "", "", fmt.Errorf("cloud: parsing %s: %v", name, err)
	}
	switch u.Scheme {
	case "file":
		p := path.Join(u.Host, u.Path)
		if u.Host != "" {
			p = "/" + p
		}
		dir, file := path.Split(p)
		if file == "" {
			return "", "", fmt.Errorf("cloud: %s does not name a file", name)
		}
		return "file://" + dir, file, nil
	case "gs", "s3":
		key = strings.TrimLeft(u.Path, "/")
		if key == "" {
			return "", "", fmt.Errorf("cloud: %s does not name a blob", name)
		}
		b := u.Scheme + "://" + u.Host
		if u.RawQuery != "" {
			b += "?" + u.RawQuery
		}
		return b, key, nil
	default:
		return "", "", fmt.Errorf("cloud: invalid provider %q in %s", u.Scheme, name)
	}
}

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name'.
// The accepted storage providers are "file" for the local filesystem
// (e.g., for testing), "gs" for Google Cloud Storage, and "s3" for AWS S3.
// Credentials for "gs" and "s3" are taken from the environment.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("cloud.OpenBucket: %v", err)
	}
	switch u.Scheme {
	case "file":
		dir := path.Join(u.Host, u.Path)
		if u.Host != "" {
			dir = "/" + dir
		}
		return fileblob.OpenBucket(dir, &fileblob.Options{CreateDir: true})
	case "gs", "s3":
		return blob.OpenBucket(ctx, bucketName)
	default:
		return nil, fmt.Errorf("cloud.OpenBucket: invalid provider %s", u.Scheme)
	}
}
