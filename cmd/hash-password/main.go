package main

// Print a bcrypt hash for ADMIN_PASSWORD_HASH:
//   go run ./cmd/hash-password 'heslo'
//   echo -n 'heslo' | go run ./cmd/hash-password

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"coop-site/internal/shared/auth"
)

var errEmptyPassword = errors.New("password must not be empty")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatalf("hash-password: %v", err)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	password := ""
	if len(args) > 0 {
		password = args[0]
	} else {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read stdin: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return errEmptyPassword
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, hash)
	return err
}
