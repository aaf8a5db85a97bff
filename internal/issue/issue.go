// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	VersionFileNotFoundId Id = iota + 1
	VersionInvalidId
	ContainerEngineNotFoundId
	DockerfileNotFoundId
	ImageExportFailedId
	ReleasePublishFailedId
	ConfigLoadFailedId
	InputDirEmptyId
	InputParseErrorId
	EncryptionKeyMissingId
	PinataCredentialsMissingId
	SpotifyAuthFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // links to documentation about this issue type
	extLinks []HttpLink  // external links that might be useful for the user
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

	versionFileNotFoundIssue = &Issue{
		id: VersionFileNotFoundId,
		mdMsg: `
# No VERSION file found!

The release pipeline reads the version from a VERSION file at the repository root.

## Things you can try:
- Create the file with a single version line:
~~~
$ echo "0.1.0" > VERSION
~~~

- Or point the pipeline at a different file:
~~~
$ refiner release --version-file path/to/VERSION
~~~`,
	}

	versionInvalidIssue = &Issue{
		id: VersionInvalidId,
		mdMsg: `
# Invalid version string!

The version is embedded into image tags, the archive filename and the release
tag, so it must be non-empty and contain only letters, digits, dots, dashes
and underscores.

## Examples of valid versions:
~~~
1.2.3
0.4.0-rc.1
2024.06.01
~~~`,
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

Building and exporting the refiner image requires a container engine.

## Supported container engines:
- **Docker**
- **Podman** (used as a fallback)

## Things you can try:
- Install Docker: https://docs.docker.com/get-docker/
- Install Podman:
  - Linux: ` + "`sudo apt install podman`" + ` or ` + "`sudo dnf install podman`" + `
  - macOS: ` + "`brew install podman`" + `

- Configure your preferred engine:
~~~cue
container_engine: "podman"  // or "docker"
~~~`,
	}

	dockerfileNotFoundIssue = &Issue{
		id: DockerfileNotFoundId,
		mdMsg: `
# Dockerfile not found!

The image build stage needs a Dockerfile in the build context directory.

## Things you can try:
- Run the release pipeline from the repository root
- Or pass the context directory explicitly:
~~~
$ refiner release --context /path/to/repo
~~~`,
	}

	imageExportFailedIssue = &Issue{
		id: ImageExportFailedId,
		mdMsg: `
# Image export failed!

The built image could not be serialized to an archive.

## Common causes:
- The image tag does not exist (did the build stage succeed?)
- Not enough disk space in the output directory
- The container engine daemon is not reachable

## Things you can try:
- Check the engine can see the image:
~~~
$ docker image inspect refiner:latest
~~~
- Free up disk space or choose a different output directory`,
	}

	releasePublishFailedIssue = &Issue{
		id: ReleasePublishFailedId,
		mdMsg: `
# Release publish failed!

Creating the release or uploading the archive asset failed.

## Common causes:
- Missing or expired GitHub token (GITHUB_TOKEN)
- The release tag already exists
- Insufficient repository permissions

## Things you can try:
- Export a token with 'contents: write' permission:
~~~
$ export GITHUB_TOKEN=...
~~~
- Delete the conflicting tag, or bump the VERSION file`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the refiner configuration file.

## Configuration file locations:
- Linux: ~/.config/refiner/config.cue
- macOS: ~/Library/Application Support/refiner/config.cue
- Windows: %APPDATA%\refiner\config.cue

## Things you can try:
- Create a default configuration:
~~~
$ refiner config init
~~~

- Check the configuration syntax
- Remove the config file to use defaults (environment variables still apply)

## Example configuration:
~~~cue
input_dir:  "/input"
output_dir: "/output"
container_engine: "docker"
~~~`,
	}

	inputDirEmptyIssue = &Issue{
		id: InputDirEmptyId,
		mdMsg: `
# No input files were processed!

The refinement run finished without processing a single JSON file.

## Things you can try:
- Check the input directory contains at least one *.json file:
~~~
$ ls /input
~~~
- Point the refiner at a different directory:
~~~
$ REFINER_INPUT_DIR=/path/to/data refiner refine
~~~`,
	}

	inputParseErrorIssue = &Issue{
		id: InputParseErrorId,
		mdMsg: `
# Input file could not be parsed!

One of the input files is not valid contribution JSON. The file was skipped
and the run continued with the remaining files.

## Things you can try:
- Validate the file with a JSON tool:
~~~
$ jq . /input/contribution.json
~~~
- Check that the file matches the expected contribution layout
  (user, stats, tracks, top_artists_medium_term)`,
	}

	encryptionKeyMissingIssue = &Issue{
		id: EncryptionKeyMissingId,
		mdMsg: `
# Refinement encryption key is missing!

The refined database must be encrypted before it leaves the machine, so the
run cannot proceed without a key.

## Things you can try:
- Set the key in the environment (it is injected by the refinement service
  in production):
~~~
$ export REFINEMENT_ENCRYPTION_KEY=...
~~~`,
	}

	pinataCredentialsMissingIssue = &Issue{
		id: PinataCredentialsMissingId,
		mdMsg: `
# Pinata credentials not set!

Without Pinata API credentials the refined output stays on the local disk and
is referenced with a file:// URL instead of an IPFS gateway URL.

## Things you can try:
- Create an API key at https://pinata.cloud and export it:
~~~
$ export PINATA_API_KEY=...
$ export PINATA_API_SECRET=...
~~~`,
	}

	spotifyAuthFailedIssue = &Issue{
		id: SpotifyAuthFailedId,
		mdMsg: `
# Spotify API authentication failed!

Artist and track enrichment uses the Spotify Web API with the
client-credentials flow.

## Things you can try:
- Export valid application credentials:
~~~
$ export SPOTIFY_CLIENT_ID=...
$ export SPOTIFY_CLIENT_SECRET=...
~~~
- Check the application is not rate limited or revoked`,
	}

	issues = map[Id]*Issue{
		versionFileNotFoundIssue.Id():      versionFileNotFoundIssue,
		versionInvalidIssue.Id():           versionInvalidIssue,
		containerEngineNotFoundIssue.Id():  containerEngineNotFoundIssue,
		dockerfileNotFoundIssue.Id():       dockerfileNotFoundIssue,
		imageExportFailedIssue.Id():        imageExportFailedIssue,
		releasePublishFailedIssue.Id():     releasePublishFailedIssue,
		configLoadFailedIssue.Id():         configLoadFailedIssue,
		inputDirEmptyIssue.Id():            inputDirEmptyIssue,
		inputParseErrorIssue.Id():          inputParseErrorIssue,
		encryptionKeyMissingIssue.Id():     encryptionKeyMissingIssue,
		pinataCredentialsMissingIssue.Id(): pinataCredentialsMissingIssue,
		spotifyAuthFailedIssue.Id():        spotifyAuthFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
