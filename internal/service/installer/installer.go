package installer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oshokin/roguelike-launcher/internal/domain/game"
	"github.com/oshokin/roguelike-launcher/internal/logger"
	"github.com/oshokin/roguelike-launcher/internal/repository/ledger"
)

const (
	userDataDirName = "userdata"
	rescueDirName   = "rescued-userdata"
	stagingSuffix   = ".staging"
	fallbackAsset   = "download"
)

// Installer performs channel upgrades.
type Installer struct {
	// baseDir holds every channel directory.
	baseDir string
	// catalog describes the channels.
	catalog *game.Catalog
	// book records installed versions.
	book *ledger.Book
	// downloader fetches assets.
	downloader Downloader
	// mounter exposes downloaded archives.
	mounter Mounter
	// processes lists running executables.
	processes ProcessLister
	// tempDir is the parent of per-install scratch directories.
	tempDir string
	// now stamps rescue directories.
	now func() time.Time
	// rename moves the staged bundle into place.
	rename func(oldPath, newPath string) error

	// mu guards active.
	mu sync.Mutex
	// active holds channels with an install in flight.
	active map[game.Channel]struct{}
}

// Option customizes an Installer.
type Option func(*Installer)

// WithMounter replaces the archive mounter.
func WithMounter(m Mounter) Option {
	return func(i *Installer) {
		if m != nil {
			i.mounter = m
		}
	}
}

// WithProcessLister replaces the running-game check. A nil lister disables it.
func WithProcessLister(list ProcessLister) Option {
	return func(i *Installer) {
		i.processes = list
	}
}

// WithTempDir sets where scratch directories are created.
func WithTempDir(dir string) Option {
	return func(i *Installer) {
		i.tempDir = dir
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(i *Installer) {
		if now != nil {
			i.now = now
		}
	}
}

var (
	// errBaseDirRequired is returned when no install root is configured.
	errBaseDirRequired = errors.New("base directory is required")
	// errDependencyMissing is returned for nil collaborators.
	errDependencyMissing = errors.New("installer dependency is missing")
)

// New creates an Installer rooted at baseDir.
func New(baseDir string, catalog *game.Catalog, book *ledger.Book, downloader Downloader, opts ...Option) (*Installer, error) {
	if baseDir == "" {
		return nil, errBaseDirRequired
	}

	if catalog == nil || book == nil || downloader == nil {
		return nil, errDependencyMissing
	}

	i := &Installer{
		baseDir:    baseDir,
		catalog:    catalog,
		book:       book,
		downloader: downloader,
		mounter:    NewArchiveMounter(),
		processes:  SystemProcesses,
		now:        time.Now,
		rename:     os.Rename,
		active:     make(map[game.Channel]struct{}),
	}

	for _, opt := range opts {
		opt(i)
	}

	return i, nil
}

// Busy reports whether the channel is installing.
func (i *Installer) Busy(ch game.Channel) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	_, ok := i.active[ch]

	return ok
}

// Reserve claims the channel for one install. The returned release must be
// called exactly once.
func (i *Installer) Reserve(ch game.Channel) (func(), error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.active[ch]; ok {
		return nil, fmt.Errorf("%s: %w", ch, ErrInstallInProgress)
	}

	i.active[ch] = struct{}{}

	var once sync.Once

	return func() {
		once.Do(func() {
			i.mu.Lock()
			delete(i.active, ch)
			i.mu.Unlock()
		})
	}, nil
}

// Install upgrades the channel to the build described by info. Events are
// delivered synchronously to handle, ending with Done or Failed.
func (i *Installer) Install(ctx context.Context, info game.ReleaseInfo, handle Handler) error {
	release, err := i.Reserve(info.Channel)
	if err != nil {
		return err
	}

	defer release()

	return i.InstallReserved(ctx, info, handle)
}

// InstallReserved runs an install for a channel already claimed with Reserve.
func (i *Installer) InstallReserved(ctx context.Context, info game.ReleaseInfo, handle Handler) error {
	if handle == nil {
		handle = func(Event) {}
	}

	r := &run{
		installer: i,
		info:      info,
		handle:    handle,
	}

	return r.execute(ctx)
}

// run is the state of one install.
type run struct {
	// installer owns the configuration.
	installer *Installer
	// def is the channel definition.
	def *game.Definition
	// info is the build being installed.
	info game.ReleaseInfo
	// handle receives events.
	handle Handler
	// workDir is the scratch directory of this install.
	workDir string
	// volume is the mounted archive, if any.
	volume *Volume
	// bundleSource is the application inside the volume.
	bundleSource string
	// savedUserData lists folders staged under workDir.
	savedUserData []string
}

func (r *run) emit(stage Stage, text string) {
	r.handle(Event{Channel: r.info.Channel, Stage: stage, Fraction: -1, Text: text})
}

func (r *run) warn(stage Stage, text string) {
	r.handle(Event{Channel: r.info.Channel, Stage: stage, Fraction: -1, Text: text, Warning: true})
}

func (r *run) execute(ctx context.Context) (err error) {
	ch := r.info.Channel
	ctx = logger.WithKV(logger.WithName(ctx, "installer"), "channel", ch)

	defer func() {
		if err == nil {
			return
		}

		logger.ErrorKV(ctx, "Install failed", "error", err)
		r.handle(Event{Channel: ch, Stage: StageFailed, Fraction: -1, Text: err.Error(), Err: err})
	}()

	r.def, err = r.installer.catalog.Lookup(ch)
	if err != nil {
		return newError(KindFilesystem, ch, err)
	}

	if !r.info.HasBuild() {
		return newError(KindNoBuild, ch, fmt.Errorf("no macOS download for %s", ch))
	}

	r.workDir, err = os.MkdirTemp(r.installer.tempDir, "roguelike-launcher-"+string(ch)+"-")
	if err != nil {
		return newError(KindFilesystem, ch, fmt.Errorf("create temp dir: %w", err))
	}

	defer func() {
		r.detach(ctx)

		if removeErr := os.RemoveAll(r.workDir); removeErr != nil {
			logger.WarnKV(ctx, "Remove temp dir", "path", r.workDir, "error", removeErr)
		}
	}()

	logger.InfoKV(ctx, "Installing", "tag", r.info.BuildTag, "url", r.info.DownloadURL)

	steps := []func(context.Context) error{
		r.download,
		r.mount,
		r.locate,
		r.backup,
		r.replace,
		r.restore,
		r.unmount,
	}

	for _, step := range steps {
		if err = step(ctx); err != nil {
			return err
		}
	}

	if !r.installer.book.Record(ctx, ch, r.info.BuildTag) {
		r.warn(StageDone, "Installed, but the version ledger could not be saved")
	}

	logger.InfoKV(ctx, "Install complete", "tag", r.info.BuildTag)
	r.handle(Event{
		Channel:  ch,
		Stage:    StageDone,
		Fraction: 1,
		Text:     fmt.Sprintf("%s %s installed successfully", ch, r.info.BuildTag),
		Tag:      r.info.BuildTag,
	})

	return nil
}

func (r *run) archivePath() string {
	name := r.info.AssetName
	if name == "" {
		if u, err := url.Parse(r.info.DownloadURL); err == nil {
			name = path.Base(u.Path)
		}
	}

	name = filepath.Base(filepath.Clean("/" + name))
	if name == "" || name == "/" || name == "." {
		name = fallbackAsset
	}

	return filepath.Join(r.workDir, name)
}

func (r *run) download(ctx context.Context) error {
	ch := r.info.Channel
	r.emit(StageDownloading, fmt.Sprintf("Downloading %s %s...", ch, r.info.BuildTag))

	progress := func(received, total int64) {
		r.handle(Event{
			Channel:  ch,
			Stage:    StageDownloading,
			Fraction: float64(received) / float64(total),
			Text:     fmt.Sprintf("Downloading %s: %d of %d bytes", ch, received, total),
		})
	}

	if err := fetch(ctx, r.installer.downloader, r.info.DownloadURL, r.archivePath(), progress); err != nil {
		return newError(KindNetwork, ch, err)
	}

	return nil
}

func (r *run) mount(ctx context.Context) error {
	r.emit(StageMounting, "Mounting disk image...")

	volume, err := r.installer.mounter.Mount(ctx, r.archivePath(), r.workDir)
	if err != nil {
		return newError(KindMount, r.info.Channel, err)
	}

	if volume.Path == "" {
		if volume.Attached {
			r.volume = &volume
		}

		return newError(KindMount, r.info.Channel, errNoMountPoint)
	}

	r.volume = &volume
	logger.DebugKV(ctx, "Mounted", "path", volume.Path)

	return nil
}

func (r *run) locate(context.Context) error {
	r.emit(StageLocatingBundle, "Looking for the application bundle...")

	source, err := locateBundle(r.volume.Path, r.def.BundleName)
	if err != nil {
		return newError(KindMissingBundle, r.info.Channel, err)
	}

	r.bundleSource = source

	return nil
}

// locateBundle picks the .app at the top level of dir, preferring preferred.
func locateBundle(dir, preferred string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dir, err)
	}

	var candidates []string

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(strings.ToLower(name), bundleSuffix) || !isDir(filepath.Join(dir, name)) {
			continue
		}

		if name == preferred {
			return filepath.Join(dir, name), nil
		}

		candidates = append(candidates, name)
	}

	switch len(candidates) {
	case 0:
		return "", errNoBundle
	case 1:
		return filepath.Join(dir, candidates[0]), nil
	default:
		return "", fmt.Errorf("%w: %s", errAmbiguousBundle, strings.Join(candidates, ", "))
	}
}

func (r *run) userDataDir(bundle string) string {
	return filepath.Join(bundle, filepath.FromSlash(r.def.DataDir))
}

func (r *run) stagedUserData() string {
	return filepath.Join(r.workDir, userDataDirName)
}

func (r *run) backup(ctx context.Context) error {
	oldBundle := r.def.BundlePath(r.installer.baseDir)
	if !r.def.PreservesUserData() || !isDir(oldBundle) {
		return nil
	}

	r.emit(StageBackingUpUserData, "Backing up saves and settings...")

	for _, folder := range r.def.UserDataFolders {
		src := filepath.Join(r.userDataDir(oldBundle), folder)
		if !exists(src) {
			continue
		}

		if err := copyTree(src, filepath.Join(r.stagedUserData(), folder)); err != nil {
			return newError(KindFilesystem, r.info.Channel, fmt.Errorf("back up %s: %w", folder, err))
		}

		r.savedUserData = append(r.savedUserData, folder)
	}

	logger.DebugKV(ctx, "User data staged", "folders", r.savedUserData)

	return nil
}

func (r *run) replace(ctx context.Context) error {
	ch := r.info.Channel
	r.emit(StageReplacingBundle, fmt.Sprintf("Installing %s...", r.def.BundleName))

	running, err := runningGame(r.installer.processes, r.def.ProcessNames)
	if err != nil {
		logger.WarnKV(ctx, "Process check failed", "error", err)
	}

	if running != "" {
		return newError(KindBusy, ch, fmt.Errorf("%w: quit %s before updating", errGameRunning, running))
	}

	staging := filepath.Join(r.installer.baseDir, "."+string(ch)+stagingSuffix)
	if err = os.RemoveAll(staging); err != nil {
		return newError(KindFilesystem, ch, fmt.Errorf("clear staging: %w", err))
	}

	if err = os.MkdirAll(staging, defaultDirMode); err != nil {
		return newError(KindFilesystem, ch, fmt.Errorf("create staging: %w", err))
	}

	if err = copyTree(r.bundleSource, filepath.Join(staging, r.def.BundleName)); err != nil {
		_ = os.RemoveAll(staging)

		return newError(KindFilesystem, ch, fmt.Errorf("copy bundle: %w", err))
	}

	// From here on the old bundle may be gone, so staged user data is the only copy.
	channelDir := r.def.Dir(r.installer.baseDir)
	if err = os.RemoveAll(channelDir); err != nil {
		_ = os.RemoveAll(staging)

		return r.failWithUserData(ctx, fmt.Errorf("remove old version: %w", err))
	}

	if err = r.installer.rename(staging, channelDir); err != nil {
		_ = os.RemoveAll(staging)

		return r.failWithUserData(ctx, fmt.Errorf("move new version into place: %w", err))
	}

	return nil
}

// failWithUserData fails the install, rescuing staged user data first.
func (r *run) failWithUserData(ctx context.Context, cause error) error {
	if len(r.savedUserData) == 0 {
		return newError(KindFilesystem, r.info.Channel, cause)
	}

	return r.rescue(ctx, cause)
}

func (r *run) restore(ctx context.Context) error {
	if len(r.savedUserData) == 0 {
		return nil
	}

	r.emit(StageRestoringUserData, "Restoring saves and settings...")

	dataDir := r.userDataDir(r.def.BundlePath(r.installer.baseDir))
	if !isDir(dataDir) {
		logger.WarnKV(ctx, "Data directory missing in new bundle, creating it", "path", dataDir)
		r.warn(StageRestoringUserData, "The new version has a different layout; user data was restored into "+dataDir)

		if err := os.MkdirAll(dataDir, defaultDirMode); err != nil {
			return r.rescue(ctx, fmt.Errorf("create data dir: %w", err))
		}
	}

	for _, folder := range r.savedUserData {
		dst := filepath.Join(dataDir, folder)
		if err := os.RemoveAll(dst); err != nil {
			return r.rescue(ctx, fmt.Errorf("clear %s: %w", folder, err))
		}

		if err := copyTree(filepath.Join(r.stagedUserData(), folder), dst); err != nil {
			return r.rescue(ctx, fmt.Errorf("restore %s: %w", folder, err))
		}
	}

	return nil
}

// rescue moves staged user data out of the temp area before it is removed.
func (r *run) rescue(ctx context.Context, cause error) error {
	ch := r.info.Channel
	target := filepath.Join(r.installer.baseDir, rescueDirName, fmt.Sprintf("%s-%d", ch, r.installer.now().Unix()))

	if err := moveTree(r.stagedUserData(), target); err != nil {
		logger.ErrorKV(ctx, "Rescue user data failed", "path", r.stagedUserData(), "error", err)

		return newError(KindFilesystem, ch, cause)
	}

	logger.WarnKV(ctx, "User data rescued", "path", target)

	return newError(KindFilesystem, ch, fmt.Errorf("%w; user data saved to %s", cause, target))
}

func (r *run) unmount(ctx context.Context) error {
	if r.volume == nil || !r.volume.Attached {
		r.volume = nil

		return nil
	}

	r.emit(StageUnmounting, "Cleaning up...")
	r.detach(ctx)

	return nil
}

// detach releases the volume once; failures only warn.
func (r *run) detach(ctx context.Context) {
	if r.volume == nil {
		return
	}

	volume := *r.volume
	r.volume = nil

	// Detach even when the install context was canceled.
	if err := r.installer.mounter.Unmount(context.WithoutCancel(ctx), volume); err != nil {
		logger.WarnKV(ctx, "Unmount failed", "path", volume.Path, "error", err)
		r.warn(StageUnmounting, "Could not unmount "+volume.Path+": "+err.Error())
	}
}
