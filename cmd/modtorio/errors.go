// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/Spanfile/Modtorio-sub000/internal/issue"
	"github.com/Spanfile/Modtorio-sub000/internal/modpack"
	"github.com/Spanfile/Modtorio-sub000/internal/mods"
	"github.com/Spanfile/Modtorio-sub000/internal/portal"
	"github.com/Spanfile/Modtorio-sub000/pkg/cueutil"
)

// explain turns err into an ActionableError for operation on resource,
// with suggestions and an issue guide matched to its cause. Errors that are
// already actionable pass through.
func explain(operation, resource string, err error) error {
	if err == nil {
		return nil
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return err
	}

	ec := issue.NewErrorContext().WithOperation(operation).WithResource(resource).Wrap(err)

	var (
		incompatible *mods.IncompatibleError
		netErr       net.Error
	)
	switch {
	case errors.Is(err, portal.ErrMissingCredentials):
		ec.WithIssue(issue.PortalCredentialsMissingId).
			WithSuggestion("Set portal.username and portal.token in config.cue").
			WithSuggestion("Or export MODTORIO_PORTAL_USERNAME and MODTORIO_PORTAL_TOKEN")
	case errors.Is(err, portal.ErrNotFound):
		ec.WithIssue(issue.ModNotFoundId).
			WithSuggestion("Check the spelling; mod names are case-sensitive")
	case errors.Is(err, mods.ErrNoSuchMod):
		ec.WithIssue(issue.ModNotFoundId).
			WithSuggestion("Run 'modtorio mods list' to see the installed mods")
	case errors.Is(err, mods.ErrNoSuchRelease):
		ec.WithSuggestion("Run 'modtorio mods info " + resource + "' to see the published releases")
	case errors.Is(err, mods.ErrChecksumMismatch):
		ec.WithIssue(issue.ChecksumMismatchId).
			WithSuggestion("Retry the command; the download may have been corrupted")
	case errors.As(err, &incompatible):
		ec.WithIssue(issue.IncompatibleModsId).
			WithSuggestion(fmt.Sprintf("Remove %s or %s", incompatible.Dependent, incompatible.Blocking))
	case errors.Is(err, modpack.ErrInvalid), errors.Is(err, cueutil.ErrInvalid), errors.Is(err, modpack.ErrUnknownFormat):
		ec.WithIssue(issue.ModpackInvalidId).
			WithSuggestion("Modpacks are modpack.toml or modpack.cue files with one [[mod]] entry per mod")
	case errors.Is(err, portal.ErrUnexpectedResponse), errors.As(err, &netErr):
		ec.WithIssue(issue.PortalUnavailableId).
			WithSuggestion("Check your network connection and portal.url")
	}

	return ec.BuildError()
}

// renderError prints err for the user. Actionable errors show their
// suggestions and, when they carry one, the matching issue guide.
func renderError(w io.Writer, err error, verbose bool) {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+err.Error())
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+ae.Format(verbose))
	if ae.Issue == 0 || !verbose {
		return
	}
	if guide := issue.Get(ae.Issue); guide != nil {
		if rendered, renderErr := guide.Render("dark"); renderErr == nil {
			fmt.Fprint(w, rendered)
		}
	}
}
