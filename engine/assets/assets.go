package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/penumbra/engine/assets/loaders"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// AssetManager indexes the assets directory and watches it for changes
// so shaders and textures can be hot reloaded while running.
type AssetManager struct {
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool

	// Reloads holds paths of assets modified on disk since the last
	// drain. The renderer polls it between frames.
	reloads chan string
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
		reloads:  make(chan string, 64),
		done:     make(chan struct{}),
	}, nil
}

func (am *AssetManager) Initialize(assetsDir string) error {
	go am.start()

	if err := am.addRecursive(assetsDir); err != nil {
		return err
	}

	// Register loaders
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeImage, &loaders.TextureLoader{})
	am.registerLoader(metadata.ResourceTypeHeightmap, &loaders.HeightmapLoader{})
	am.registerLoader(metadata.ResourceTypeBitmapFont, &loaders.BitmapFontLoader{ResourcePath: assetsDir})

	return nil
}

func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	return nil
}

// addRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(name, false)
}

func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads an asset through the loader registered for its type.
func (am *AssetManager) LoadAsset(filename string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	var path string
	switch resourceType {
	case metadata.ResourceTypeShader:
		path = fmt.Sprintf("assets/shaders/%s.spv", filename)
	case metadata.ResourceTypeImage:
		path = fmt.Sprintf("assets/textures/%s", filename)
	case metadata.ResourceTypeHeightmap:
		path = fmt.Sprintf("assets/terrain/%s", filename)
	case metadata.ResourceTypeBitmapFont:
		path = fmt.Sprintf("assets/fonts/%s.fnt", filename)
	default:
		return nil, errors.Newf("unknown resource type %d", resourceType)
	}

	am.mutex.RLock()
	asset, exists := am.assets[path]
	am.mutex.RUnlock()
	if !exists {
		return nil, errors.Newf("asset not found: %s", path)
	}

	asset.LastLoaded = time.Now()
	am.mutex.Lock()
	am.assets[path] = asset
	am.mutex.Unlock()

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, errors.Newf("no loader registered for asset type: %d", asset.Type)
	}

	return loader.Load(path, resourceType, params)
}

// LoadAssetFromPath loads an asset the caller already knows the full
// path of, such as a font atlas page referenced from a .fnt file.
func (am *AssetManager) LoadAssetFromPath(path string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	loader, ok := am.loaders[resourceType]
	if !ok {
		return nil, errors.Newf("no loader registered for asset type: %d", resourceType)
	}
	return loader.Load(path, resourceType, params)
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource) error {
	loader, ok := am.loaders[determineAssetType(asset.FullPath)]
	if !ok {
		return nil
	}
	return loader.Unload(asset)
}

// DrainReloads returns the set of asset paths modified since the last
// call. Intended to be polled once per frame.
func (am *AssetManager) DrainReloads() []string {
	var paths []string
	for {
		select {
		case p := <-am.reloads:
			paths = append(paths, p)
		default:
			return paths
		}
	}
}

func (am *AssetManager) start() {
	for {
		select {
		case e := <-am.fsnotify.Events:
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					am.watchRecursive(e.Name, false)
				}
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if am.handleFileEvent(e.Name) {
					select {
					case am.reloads <- e.Name:
					default:
						core.LogWarn("asset reload queue full, dropping %s", e.Name)
					}
				}
			}
			if e.Op&fsnotify.Remove != 0 {
				am.removeAsset(e.Name)
				am.fsnotify.Remove(e.Name)
			}

		case e := <-am.fsnotify.Errors:
			core.LogError(e.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch
// list and indexes the files already there.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	wd = wd + "/"
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(strings.TrimPrefix(walkPath, wd))
		return nil
	})
}

func (am *AssetManager) handleFileEvent(path string) bool {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return false
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path:       path,
		Type:       assetType,
		LastLoaded: time.Now(),
	}
	return true
}

func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func determineAssetType(path string) metadata.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return metadata.ResourceTypeShader
	case ".png", ".jpg":
		if strings.Contains(path, "terrain") {
			return metadata.ResourceTypeHeightmap
		}
		return metadata.ResourceTypeImage
	case ".fnt":
		return metadata.ResourceTypeBitmapFont
	default:
		return metadata.ResourceTypeNone
	}
}
