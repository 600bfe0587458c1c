package main

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"
)

var signedOutHints = [...]string{
	"Nobody is signed in on this machine.",
	"No session found. The door is right there.",
	"The credential store is empty.",
	"You are a stranger here, for now.",
	"No token, no dashboard.",
}

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2dd4bf")).Bold(true)
	quietStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	cmdStyle   = lipgloss.NewStyle().Bold(true)
)

func printVersion(w io.Writer) {
	fmt.Fprint(w, figure.NewFigure("portal", "cybermedium", true).String())
	fmt.Fprintf(w, "\n  %s\n\n", quietStyle.Render("version "+version))
}

func printHelp(w io.Writer) {
	commands := []struct{ cmd, desc string }{
		{"portal", "Open the terminal UI"},
		{"portal login", "Sign in: --email --password"},
		{"portal register", "Create an account: --name --email --password"},
		{"portal logout", "Clear the stored session"},
		{"portal whoami", "Show the signed-in user"},
		{"portal version", "Show version"},
		{"portal help", "You are here"},
	}

	fmt.Fprintf(w, "\n  %s\n\n  Commands:\n", titleStyle.Render("P O R T A L"))
	for _, c := range commands {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-18s", c.cmd)), quietStyle.Render(c.desc))
	}
	fmt.Fprintf(w, "\n  %s\n\n", quietStyle.Render("Settings come from PORTAL_* environment variables or .env"))
}

func printSignedOut(w io.Writer) {
	msg := signedOutHints[rand.IntN(len(signedOutHints))]
	fmt.Fprintf(w, "%s\n%s\n", quietStyle.Italic(true).Render(msg), quietStyle.Render("To sign in: portal login --email you@example.com --password ..."))
}
