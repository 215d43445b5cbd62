//go:build linux || darwin

// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rest

import (
	"os"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/mlnoga/nightvision/internal/errs"
)

// Secures the current process by creating a chroot environment
// (requires root) and changing the user ID to something without
// elevated rights. A negative setuid keeps the current user
func MakeSandbox(log *logrus.Logger, chroot string, setuid int) error {
	if len(chroot) > 0 {
		log.Infof("Changing filesystem root to %s...", chroot)
		if err := syscall.Chroot(chroot); err != nil {
			return errs.Configf("chroot(%s): %w", chroot, err)
		}
		if err := os.Chdir("/"); err != nil {
			return errs.Configf("chdir(/) in %s: %w", chroot, err)
		}
	}
	if setuid >= 0 {
		log.Infof("Setting user id from %d/%d to %d", syscall.Getuid(), syscall.Geteuid(), setuid)
		if err := syscall.Setuid(setuid); err != nil {
			return errs.Configf("setuid(%d): %w", setuid, err)
		}
	}
	return nil
}
