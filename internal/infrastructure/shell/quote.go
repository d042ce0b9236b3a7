package shell

import (
	"strings"

	"github.com/kballard/go-shellquote"
)

// Quote joins args into a single shell-safe command fragment.
func Quote(args ...string) string {
	return shellquote.Join(args...)
}

// Redact replaces every quoted and unquoted occurrence of secret in command.
func Redact(command, secret string) string {
	if secret == "" {
		return command
	}
	command = strings.ReplaceAll(command, shellquote.Join(secret), "***")
	return strings.ReplaceAll(command, secret, "***")
}
