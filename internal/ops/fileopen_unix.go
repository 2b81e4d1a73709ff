//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/photokeep/photokeep/internal/errors"
)

// openNoFollow opens path with O_NOFOLLOW|O_CLOEXEC added to flag.
// Only the final component is protected; ValidatePath covers the parent.
func openNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		switch {
		case stderrors.Is(err, syscall.ELOOP):
			return nil, errors.NewInvalidRequest("path must not be a symlink")
		case stderrors.Is(err, syscall.ENOENT) && flag&os.O_CREATE == 0:
			return nil, errors.NewFileNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}
	return os.NewFile(uintptr(fd), path), nil
}
