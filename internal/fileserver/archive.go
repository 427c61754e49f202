package fileserver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"hrmq/internal/config"
	"hrmq/internal/logging"
)

// Runner executes an external command and returns its combined output.
// A non-nil error means the command could not start or exited non-zero.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandRunner struct{}

func (commandRunner) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// DecompressArchive expands file into destDir using the command configured
// for the file's extension. The command succeeds only on exit status 0.
func (in *Ingestor) DecompressArchive(ctx context.Context, file, destDir string) error {
	extension := strings.ToLower(FileNameExtension(file))
	template, ok := in.archives[extension]
	if !ok {
		return wrap(ErrDecompressionFailed, "decompress", fmt.Sprintf("no command configured for .%s archives", extension), nil)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return wrap(ErrDecompressionFailed, "decompress", "create "+destDir, err)
	}

	binary, args, err := expandCommand(template, destDir, file)
	if err != nil {
		return wrap(ErrDecompressionFailed, "decompress", extension, err)
	}

	if in.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.timeout)
		defer cancel()
	}

	in.logger.Debug("expanding archive",
		logging.String("archive", file),
		logging.String("destination", destDir),
		logging.String("binary", binary),
		logging.Strings("args", args),
	)
	output, err := in.runner.Run(ctx, binary, args)
	if err != nil {
		in.logger.Debug("archive command output", logging.String("output", strings.TrimSpace(string(output))))
		return wrap(ErrDecompressionFailed, "decompress", fmt.Sprintf("failed decompressing archive file %s", file), err)
	}
	return nil
}

// shellArgv0 names the inline script in ps output and shell error messages.
const shellArgv0 = "hrmq-archive"

// expandCommand turns template into an `sh -c` invocation. The destination
// folder and the archive travel as positional parameters $1 and $2, so
// templates may use shell syntax and either quote the placeholder or not:
// `tar -C %DEST% -xf`, `tar -C "%DEST%" -xf` and `cd %DEST% && unzip -o`
// all receive the folder as a single word. The archive is appended last.
func expandCommand(template, destDir, file string) (string, []string, error) {
	template = strings.TrimSpace(template)
	if template == "" {
		return "", nil, errors.New("empty command template")
	}
	script := strings.NewReplacer(
		`"`+config.DestPlaceholder+`"`, `"$1"`,
		`'`+config.DestPlaceholder+`'`, `"$1"`,
		config.DestPlaceholder, `"$1"`,
	).Replace(template)
	script += ` "$2"`
	return "sh", []string{"-c", script, shellArgv0, destDir, file}, nil
}
