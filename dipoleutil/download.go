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

	"github.com/spatialmodel/dipole/cloud"
)

// maybeDownload checks if the input is an existing local file. If not
// and it is a blob URL, the blob is downloaded to a temporary directory
// and the path to the downloaded file is returned.
func maybeDownload(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return path, nil
	}
	if !cloud.IsURL(path) {
		return path, nil
	}
	dir, err := os.MkdirTemp("", "dipole")
	if err != nil {
		return "", fmt.Errorf("dipole: creating temporary download directory: %v", err)
	}
	local := filepath.Join(dir, filepath.Base(path))
	if err := cloud.Download(ctx, path, local); err != nil {
		return "", err
	}
	return local, nil
}
