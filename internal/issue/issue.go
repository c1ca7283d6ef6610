// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	EnvironmentCreationFailedId Id = iota + 1
	EnvironmentLockedId
	CorePackagesMissingId
	PackageBuildFailedId
	ArtifactNotFoundId
	DependencyConflictId
	PackageInstallFailedId
	LauncherWriteFailedId
	CompletionWriteFailedId
	VerificationFailedId
	ConfigLoadFailedId
	InterpreterNotFoundId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	environmentCreationFailedIssue = &Issue{
		id: EnvironmentCreationFailedId,
		mdMsg: `
# Could not create the runtime environment!

The isolated environment that hosts the application could not be created.

## Common causes:
- The host Python interpreter is missing or has no ` + "`venv`" + ` module
- The environment path is not writable
- A previous environment at the same path is damaged

## Things you can try:
- Check which interpreter is used:
~~~
$ modinstall config show
~~~
- Point ` + "`environment.python`" + ` at a working interpreter
- Remove the damaged environment directory and run the install again`,
		extLinks: []HttpLink{"https://docs.python.org/3/library/venv.html"},
	}

	environmentLockedIssue = &Issue{
		id: EnvironmentLockedId,
		mdMsg: `
# Another install is running!

A different modinstall process holds the lock for this environment.

## Things you can try:
- Wait for the other install to finish
- If no other install is running, remove the stale ` + "`.lock`" + ` file next to the environment`,
	}

	corePackagesMissingIssue = &Issue{
		id: CorePackagesMissingId,
		mdMsg: `
# Core packages not found!

One or more of the fixed core package directories are missing from the source tree.

## Things you can try:
- Check that ` + "`--source`" + ` points at the directory that contains the core packages
- Check ` + "`layout.core_packages`" + ` in your config file
- List what modinstall sees:
~~~
$ modinstall discover
~~~`,
	}

	packageBuildFailedIssue = &Issue{
		id: PackageBuildFailedId,
		mdMsg: `
# A package failed to build!

The build tool exited with an error. No package was installed.

## Things you can try:
- Read the build output above for the failing step
- Build the package by hand from its directory:
~~~
$ python setup.py bdist_wheel
~~~
- Make sure ` + "`wheel`" + ` and ` + "`setuptools`" + ` are available in the environment`,
	}

	artifactNotFoundIssue = &Issue{
		id: ArtifactNotFoundId,
		mdMsg: `
# Package artifact not found!

A package requested for installation has no built artifact and no remote source could provide it.

## Things you can try:
- Make sure the package directory is discovered:
~~~
$ modinstall discover
~~~
- Configure ` + "`remote.index_url`" + ` if the package comes from an index`,
	}

	dependencyConflictIssue = &Issue{
		id: DependencyConflictId,
		mdMsg: `
# Conflicting dependencies!

The package installer could not find a set of versions that satisfies every requirement.

## Things you can try:
- Check the version pins of the core package and the modules
- Reinstall into a fresh environment with ` + "`--prefix`",
	}

	packageInstallFailedIssue = &Issue{
		id: PackageInstallFailedId,
		mdMsg: `
# Installation failed!

The package installer exited with an error.

## Things you can try:
- Run again with ` + "`--verbose`" + ` to see the installer output
- Check network access when a remote index is configured`,
	}

	launcherWriteFailedIssue = &Issue{
		id: LauncherWriteFailedId,
		mdMsg: `
# Could not write the launcher!

## Things you can try:
- Check that the bin directory exists and is writable
- Choose another location with ` + "`--bin-dir`",
	}

	completionWriteFailedIssue = &Issue{
		id: CompletionWriteFailedId,
		mdMsg: `
# Could not write the completion script!

## Things you can try:
- Check that the completion directory is writable
- Choose another location with ` + "`--completion-dir`",
	}

	verificationFailedIssue = &Issue{
		id: VerificationFailedId,
		mdMsg: `
# Verification failed!

The installed launcher or completion script did not behave as expected.

## Things you can try:
- Run the launcher by hand:
~~~
$ az --version
~~~
- Re-run only the checks:
~~~
$ modinstall verify --verbose
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Check the CUE syntax of your config file
- Recreate the default file:
~~~
$ modinstall config init
~~~`,
	}

	interpreterNotFoundIssue = &Issue{
		id: InterpreterNotFoundId,
		mdMsg: `
# Python interpreter not found!

modinstall needs a host Python 3 interpreter to create the environment.

## Things you can try:
- Install Python 3 and make sure ` + "`python3`" + ` is in your PATH
- Set ` + "`environment.python`" + ` to an absolute interpreter path`,
	}

	issues = map[Id]*Issue{
		environmentCreationFailedIssue.Id(): environmentCreationFailedIssue,
		environmentLockedIssue.Id():         environmentLockedIssue,
		corePackagesMissingIssue.Id():       corePackagesMissingIssue,
		packageBuildFailedIssue.Id():        packageBuildFailedIssue,
		artifactNotFoundIssue.Id():          artifactNotFoundIssue,
		dependencyConflictIssue.Id():        dependencyConflictIssue,
		packageInstallFailedIssue.Id():      packageInstallFailedIssue,
		launcherWriteFailedIssue.Id():       launcherWriteFailedIssue,
		completionWriteFailedIssue.Id():     completionWriteFailedIssue,
		verificationFailedIssue.Id():        verificationFailedIssue,
		configLoadFailedIssue.Id():          configLoadFailedIssue,
		interpreterNotFoundIssue.Id():       interpreterNotFoundIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
