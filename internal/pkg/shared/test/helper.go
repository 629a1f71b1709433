package test

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/defenxor/ppp-connectors/internal/pkg/shared/fs"
	log "github.com/defenxor/ppp-connectors/internal/pkg/shared/logger"
)

//DirEnv get the root app directory and setup log for testing
func DirEnv(dbg bool) (dir string, err error) {
	dir, err = fs.GetDir(true)
	if err == nil {
		err = log.Setup(dbg)
	}
	return
}

// EnvFile writes lines as a KEY=VALUE file in a fresh temp directory and returns
// its path. The caller removes filepath.Dir(path) when done.
func EnvFile(lines ...string) (path string, err error) {
	dir, err := os.MkdirTemp("", "pppc-test")
	if err != nil {
		return
	}
	path = filepath.Join(dir, ".env")
	err = os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600)
	return
}
