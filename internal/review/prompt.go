package review

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RunPrompt drives a session from line-oriented input. End of input ends
// the session as if the reviewer had quit.
func RunPrompt(s *Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	readLine := func(prompt string) (string, bool) {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	rule := strings.Repeat("=", 60)
	for !s.Done() {
		pair, _ := s.Current()
		idx, total := s.Position()
		fmt.Fprintf(out, "\n%s\nPair %d/%d\n%s\n", rule, idx, total, rule)
		fmt.Fprintf(out, "Q: %s\n\nA: %s\n%s\n", pair.Instruction, s.Preview(pair.Output), rule)

		for {
			line, ok := readLine("\n[A]ccept / [R]eject / [E]dit / [S]kip / [Q]uit: ")
			if !ok {
				s.Quit()
				return scanner.Err()
			}
			cmd, err := ParseCommand(line)
			if errors.Is(err, ErrInvalidChoice) {
				fmt.Fprintln(out, "Invalid choice, try again.")
				continue
			}

			switch cmd {
			case CommandAccept:
				err = s.Accept()
			case CommandReject:
				reason, _ := readLine("Reason (optional): ")
				err = s.Reject(reason)
			case CommandEdit:
				fmt.Fprintf(out, "Current answer: %s\n", pair.Output)
				answer, _ := readLine("New answer (or press Enter to keep): ")
				err = s.Edit(answer)
			case CommandSkip:
				err = s.Skip()
			case CommandQuit:
				fmt.Fprintln(out, "\nQuitting review early...")
				s.Quit()
			}
			if err != nil {
				return err
			}
			break
		}
	}
	return nil
}
