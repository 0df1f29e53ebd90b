package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Confirm prints a yes/no question to out and reads the answer from in.
// Anything but y/yes is a no.
func Confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", StyleWarning.Render(prompt))
	line, _ := bufio.NewReader(in).ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// PromptApprover returns a wallet approver that asks on the terminal.
// The answer is read in a goroutine so a cancelled ctx counts as a refusal.
func PromptApprover(in io.Reader, out io.Writer) func(ctx context.Context, prompt string) bool {
	return func(ctx context.Context, prompt string) bool {
		answer := make(chan bool, 1)
		go func() { answer <- Confirm(in, out, prompt) }()
		select {
		case ok := <-answer:
			return ok
		case <-ctx.Done():
			fmt.Fprintln(out)
			return false
		}
	}
}
