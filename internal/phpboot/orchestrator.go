package phpboot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// State is a step of the acquisition pipeline.
type State int

const (
	StateStart State = iota
	StateCheckLocal
	StateReuse
	StateResolvePlatform
	StateUnsupported
	StateFetchRelease
	StateDownloading
	StateExtracting
	StateFailed
	StateReady
)

var stateNames = map[State]string{
	StateStart:           "START",
	StateCheckLocal:      "CHECK_LOCAL",
	StateReuse:           "REUSE",
	StateResolvePlatform: "RESOLVE_PLATFORM",
	StateUnsupported:     "UNSUPPORTED_TERMINAL",
	StateFetchRelease:    "FETCH_RELEASE",
	StateDownloading:     "DOWNLOADING",
	StateExtracting:      "EXTRACTING",
	StateFailed:          "FAILED",
	StateReady:           "READY",
}

func (s State) String() string {
	name, ok := stateNames[s]
	if !ok {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return name
}

// Terminal reports whether the pipeline stops in s.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed || s == StateUnsupported
}

// Result is the outcome of one Orchestrator.Run.
type Result struct {
	State        State
	States       []State
	Installation *Installation
}

// OrchestratorOpts holds the collaborators of an Orchestrator. All fields are optional.
type OrchestratorOpts struct {
	// Sink receives status messages for the host UI.
	Sink Sink

	// OnReady is called exactly once when a run reaches READY.
	OnReady func()

	HTTPClient *http.Client
	Runner     Runner
	Logger     *log.Logger
}

// Orchestrator makes sure php is installed under the configured root.
type Orchestrator struct {
	cfg        *Config
	sink       publisher
	onReady    func()
	logger     *log.Logger
	prober     *Prober
	downloader *Downloader
	locator    *ReleaseLocator
	installer  *Installer
}

// NewOrchestrator returns an Orchestrator for cfg.
func NewOrchestrator(cfg *Config, opts *OrchestratorOpts) (*Orchestrator, error) {
	if opts == nil {
		opts = &OrchestratorOpts{}
	}
	resolved, err := cfg.Resolved()
	if err != nil {
		return nil, err
	}
	logger := orDiscard(opts.Logger)
	var sink Sink = discardSink{}
	if opts.Sink != nil {
		sink = opts.Sink
	}
	prober := &Prober{
		Runner: opts.Runner,
		Logger: logger,
	}
	downloader := &Downloader{
		Client:       opts.HTTPClient,
		MaxRedirects: resolved.MaxRedirects,
		Logger:       logger,
	}
	return &Orchestrator{
		cfg:        resolved,
		sink:       publisher{sink: sink, logger: logger},
		onReady:    opts.OnReady,
		logger:     logger,
		prober:     prober,
		downloader: downloader,
		locator: &ReleaseLocator{
			Downloader:   downloader,
			MetadataURL:  resolved.MetadataURL,
			Channel:      resolved.Channel,
			ArtifactName: resolved.ArtifactName,
			ArtifactURL:  resolved.ArtifactURL,
		},
		installer: &Installer{
			Prober: prober,
			Logger: logger,
		},
	}, nil
}

// Config returns the resolved config the orchestrator runs with.
func (o *Orchestrator) Config() *Config {
	cfg := *o.cfg
	return &cfg
}

// Prober returns the prober Run uses.
func (o *Orchestrator) Prober() *Prober { return o.prober }

// Downloader returns the downloader Run uses.
func (o *Orchestrator) Downloader() *Downloader { return o.downloader }

// ReleaseLocator returns the release locator Run uses.
func (o *Orchestrator) ReleaseLocator() *ReleaseLocator { return o.locator }

// Installer returns the installer Run uses. It doesn't take the install lock.
func (o *Orchestrator) Installer() *Installer { return o.installer }

type run struct {
	*Orchestrator
	result Result
}

func (r *run) transition(state State) {
	r.logger.Debug("transition", "from", r.result.State, "to", state)
	r.result.State = state
	r.result.States = append(r.result.States, state)
}

// fail moves to FAILED after publishing "prefix: err".
func (r *run) fail(prefix string, err error) (*Result, error) {
	r.sink.publish(fmt.Sprintf("%s: %v", prefix, err))
	r.transition(StateFailed)
	return &r.result, err
}

// Run drives the pipeline from START to a terminal state. The returned error is
// non-nil for FAILED and UNSUPPORTED_TERMINAL; the status has already been
// published to the sink by then.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	r := &run{Orchestrator: o}
	r.result.States = []State{StateStart}

	lock, err := lockRoot(o.cfg.InstallRoot)
	if err != nil {
		return r.fail("Could not lock PHP install", err)
	}
	defer releaseLock(o.logger, lock)

	r.transition(StateCheckLocal)
	inst, reinstall, err := r.checkLocal(ctx)
	if err != nil {
		return r.fail("Could not probe PHP", err)
	}
	if inst != nil {
		r.transition(StateReuse)
		return r.ready(inst), nil
	}

	r.transition(StateResolvePlatform)
	platform, err := ArtifactPlatform(o.cfg.Platform)
	if err != nil {
		r.sink.publish("Could not download PHP: No prebuilt PHP download available")
		r.transition(StateUnsupported)
		return &r.result, err
	}
	if CurrentHost.Emulated(o.cfg.Platform) {
		o.logger.Warn("prebuilt php is x86_64 and will run under emulation", "arch", CurrentHost.Arch)
	}
	failPrefix := "Could not download PHP"
	if reinstall {
		failPrefix = "Could not update PHP"
		r.sink.publish(fmt.Sprintf("Updating PHP to %s...", o.cfg.MinVersion))
	} else {
		r.sink.publish("Downloading PHP...")
	}

	r.transition(StateFetchRelease)
	release, err := r.fetchRelease(ctx, platform)
	if err != nil {
		return r.fail("Could not download PHP", err)
	}
	err = r.checkPolicy(release.Version)
	if err != nil {
		return r.fail(failPrefix, err)
	}

	r.transition(StateDownloading)
	archivePath := filepath.Join(o.cfg.InstallRoot, release.Filename)
	err = r.download(ctx, release, archivePath)
	if err != nil {
		return r.fail("Could not download PHP", err)
	}

	r.transition(StateExtracting)
	r.sink.publish("Extracting PHP...")
	inst, err = o.installer.Install(ctx, archivePath, o.cfg.InstallRoot, o.cfg.Platform)
	if err != nil {
		var exErr *ExtractionError
		if errors.As(err, &exErr) {
			return r.fail("Could not extract PHP", err)
		}
		return r.fail("Could not probe PHP", err)
	}
	err = r.checkPolicy(inst.Version)
	if err != nil {
		return r.fail(failPrefix, err)
	}
	r.sink.publish(fmt.Sprintf("Installed PHP %s at %s", inst.Version, inst.Executable))
	return r.ready(inst), nil
}

// checkLocal probes the install root. It returns a usable installation, or
// reinstall=true when one exists but is rejected by min_version.
func (r *run) checkLocal(ctx context.Context) (_ *Installation, reinstall bool, _ error) {
	inst, err := r.prober.Probe(ctx, r.cfg.InstallRoot, r.cfg.Platform)
	if errors.Is(err, ErrNotFound) {
		r.logger.Debug("no local php", "root", r.cfg.InstallRoot)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	r.sink.publish(fmt.Sprintf("Found PHP at %s...", inst.Executable))
	ok, err := r.cfg.AcceptsVersion(inst.Version)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		r.logger.Info("installed php rejected by min_version", "version", inst.Version, "min_version", r.cfg.MinVersion)
		return nil, true, nil
	}
	return inst, false, nil
}

// checkPolicy returns a *VersionPolicyError when version is rejected by min_version.
func (r *run) checkPolicy(version string) error {
	ok, err := r.cfg.AcceptsVersion(version)
	if err != nil {
		return err
	}
	if !ok {
		return &VersionPolicyError{Version: version, MinVersion: r.cfg.MinVersion}
	}
	return nil
}

func (r *run) fetchRelease(ctx context.Context, platform string) (*Release, error) {
	version, err := r.locator.LatestStableVersion(ctx)
	if err != nil {
		return nil, err
	}
	release, err := r.locator.ResolveRelease(version, platform)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("resolved release", "version", release.Version, "url", release.URL)
	return release, nil
}

func (r *run) download(ctx context.Context, release *Release, archivePath string) error {
	err := os.MkdirAll(r.cfg.InstallRoot, 0o755)
	if err != nil {
		return err
	}
	return r.downloader.Download(ctx, release.URL, archivePath)
}

// releaseLock closes the install lock. Failures are logged, not returned.
func releaseLock(logger *log.Logger, lock io.Closer) {
	err := lock.Close()
	if err != nil {
		logger.Warn("could not release install lock", "err", err)
	}
}

func (r *run) ready(inst *Installation) *Result {
	r.transition(StateReady)
	r.result.Installation = inst
	if r.onReady != nil {
		r.onReady()
	}
	return &r.result
}
