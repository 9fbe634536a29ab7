// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"errors"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"

	"github.com/modrt/modrt/internal/dag"
	"github.com/modrt/modrt/internal/discovery"
	"github.com/modrt/modrt/internal/watch"
	"github.com/modrt/modrt/pkg/isolation"
	"github.com/modrt/modrt/pkg/loader"
	"github.com/modrt/modrt/pkg/manifest"
	"github.com/modrt/modrt/pkg/modmeta"
	"github.com/modrt/modrt/pkg/services"
)

const (
	ModuleDirNotFoundId Id = iota + 1
	ManifestNotFoundId
	DescriptorMalformedId
	EntryPointUnresolvedId
	LoadCancelledId
	HookFailedId
	ImplementationConflictId
	MissingImplementationId
	DependencyCycleId
	ConfigLoadFailedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to look up the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

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

// Render renders the issue page with glamour. stylePath is a glamour style
// name such as "dark", "light" or "notty".
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	moduleDirNotFoundIssue = &Issue{
		id: ModuleDirNotFoundId,
		mdMsg: `
# Module directory not found!

None of the configured module directories exist.

## Where modrt looks
1. Directories passed on the command line
2. ` + "`module_dirs`" + ` in your config file
3. ` + "`./modules`" + ` when nothing else is configured

## Things you can try
- Create the directory and put one module per subdirectory:
~~~
$ mkdir -p modules/greeter
~~~

- Point modrt at an existing directory:
~~~
$ modrt run ./path/to/modules
~~~`,
	}

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No module manifest found!

A module directory must contain exactly one manifest:
` + "`module.cue`, `module.toml`, `module.yaml`, `module.yml` or `module.hcl`" + `.

## Example module.toml
~~~toml
name = "greeter-impl"
version = "1.0.0"
main = "greeter.New"
~~~`,
	}

	descriptorMalformedIssue = &Issue{
		id: DescriptorMalformedId,
		mdMsg: `
# Malformed module descriptor!

The manifest is missing a required attribute or one of its values is invalid.

## Required attributes
- **name**: the declared name. A ` + "`-api`/`-spec`" + ` suffix marks a specification,
  ` + "`-impl`" + ` an implementation.
- **version**: up to three dot-separated numbers, for example ` + "`1.10`" + `.
- **main** (or **entryPoint**): the symbol that constructs the module.

## Things you can try
- Inspect what modrt reads from the manifest:
~~~
$ modrt inspect ./modules/greeter
~~~`,
	}

	entryPointUnresolvedIssue = &Issue{
		id: EntryPointUnresolvedId,
		mdMsg: `
# Entry point could not be resolved!

The entry point is resolved in the module's own namespace only. It must name
an exported, zero-argument constructor returning a module.

## Example
~~~go
package greeter

func New() module.Module { return &Greeter{} }
~~~

~~~toml
main = "greeter.New"
~~~`,
	}

	loadCancelledIssue = &Issue{
		id: LoadCancelledId,
		mdMsg: `
# Module load cancelled!

A pre-load observer vetoed the module. The reasons are listed above.`,
	}

	hookFailedIssue = &Issue{
		id: HookFailedId,
		mdMsg: `
# Module hook failed!

One of the module's lifecycle hooks returned an error or panicked.

## What happened to the module
- **OnLoad**: the load was aborted and the namespace released.
- **OnEnable/OnDisable**: the module kept its previous state.
- **OnUnload**: the module was unloaded anyway.

## Things you can try
- Run with ` + "`--verbose`" + ` to see the module's own log output.`,
	}

	implementationConflictIssue = &Issue{
		id: ImplementationConflictId,
		mdMsg: `
# Implementation conflict!

Two modules tried to provide the same capability. Only the first one wins;
a capability can be redefined only after its owner revokes it or unloads.

## Things you can try
- Remove one of the competing implementation modules
- Disable the first provider before enabling the second`,
	}

	missingImplementationIssue = &Issue{
		id: MissingImplementationId,
		mdMsg: `
# Missing implementation!

A module asked for a capability that no enabled module provides, or declared
a dependency on a module that was not discovered.

## Things you can try
- Check that the implementation module is loaded and enabled:
~~~
$ modrt list
~~~`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

The declared dependencies of your modules form a cycle, so there is no order
to load them in.

## Things you can try
- Review the ` + "`dependencies`" + ` and ` + "`optional-dependencies`" + ` lists
- Move the shared types into a specification module both sides depend on`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Configuration file locations
- The path given with ` + "`--config`" + `
- Linux: ~/.config/modrt/config.cue
- macOS: ~/Library/Application Support/modrt/config.cue
- Windows: %APPDATA%\modrt\config.cue
- ./config.cue

## Example configuration
~~~cue
module_dirs: ["./modules"]
log_level:   "info"
watch: {
	enabled:  true
	debounce: "500ms"
}
~~~

## Things you can try
- Print the effective configuration:
~~~
$ modrt config show
~~~`,
	}

	issues = map[Id]*Issue{
		moduleDirNotFoundIssue.Id():      moduleDirNotFoundIssue,
		manifestNotFoundIssue.Id():       manifestNotFoundIssue,
		descriptorMalformedIssue.Id():    descriptorMalformedIssue,
		entryPointUnresolvedIssue.Id():   entryPointUnresolvedIssue,
		loadCancelledIssue.Id():          loadCancelledIssue,
		hookFailedIssue.Id():             hookFailedIssue,
		implementationConflictIssue.Id(): implementationConflictIssue,
		missingImplementationIssue.Id():  missingImplementationIssue,
		dependencyCycleIssue.Id():        dependencyCycleIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
	}

	// sentinels maps well-known errors to their issue, most specific first.
	sentinels = []struct {
		err error
		id  Id
	}{
		{discovery.ErrNoRoots, ModuleDirNotFoundId},
		{watch.ErrNoRoots, ModuleDirNotFoundId},
		{isolation.ErrSymbolNotFound, EntryPointUnresolvedId},
		{manifest.ErrNotFound, ManifestNotFoundId},
		{manifest.ErrAmbiguous, ManifestNotFoundId},
		{modmeta.ErrMalformedDescriptor, DescriptorMalformedId},
		{loader.ErrLoadCancelled, LoadCancelledId},
		{loader.ErrHookFailed, HookFailedId},
		{services.ErrImplementationConflict, ImplementationConflictId},
		{services.ErrMissingImplementation, MissingImplementationId},
		{dag.ErrCycle, DependencyCycleId},
		{dag.ErrMissingDependency, MissingImplementationId},
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}

// ForError returns the issue describing err, or nil when err matches none.
func ForError(err error) *Issue {
	if err == nil {
		return nil
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return issues[s.id]
		}
	}
	return nil
}
