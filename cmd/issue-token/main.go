// Command issue-token prints a signed API token for the JWT_SECRET of the
// current environment.
//
//	issue-token -sub treasurer -role admin -ttl 720h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/phillip/group-contributions-go/config"
	"github.com/phillip/group-contributions-go/middleware"
)

func main() {
	sub := flag.String("sub", "", "token subject, e.g. the operator's name")
	role := flag.String("role", middleware.RoleMember, "role claim: member or admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	if !cfg.AuthEnabled() {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}
	if *sub == "" {
		fmt.Fprintln(os.Stderr, "-sub is required")
		os.Exit(2)
	}
	if *role != middleware.RoleMember && *role != middleware.RoleAdmin {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	token, err := middleware.IssueToken(cfg.JWTSecret, *sub, *role, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
