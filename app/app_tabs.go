package app

import (
	"context"
	"fmt"

	"gridquery/app/fileloader"
	"gridquery/app/interfaces"
	"gridquery/app/query"

	"github.com/google/uuid"
)

// OpenFileTab loads a file or directory into a new tab, computes its first
// state and makes it active
func (a *App) OpenFileTab(ctx context.Context, path string, opts interfaces.FileOptions) (*Tab, error) {
	a.logf("info", "[OPEN_TAB] %s opts=%+v", path, opts)
	if path == "" {
		return nil, fmt.Errorf("file path is empty")
	}
	if fileloader.IsDirectory(path) && opts.MaxFiles == 0 {
		opts.MaxFiles = a.settings.MaxDirectoryFiles
	}

	ds, err := fileloader.Load(ctx, path, opts, a.settings.LoadWorkers, a.logger)
	if err != nil {
		return nil, err
	}

	tab := newTab(a, tabName(path))
	tab.FilePath = path
	tab.Options = opts
	tab.Header = ds.Header
	tab.Warnings = ds.Warnings
	tab.rows = ds.Rows

	// Without a content hash the dataset is not shared with other tabs
	fileHash, err := datasetHash(path, opts, a.settings.MaxDirectoryFiles)
	if err != nil {
		a.logf("warn", "[OPEN_TAB] failed to hash %s: %v", path, err)
		tab.DatasetID = tab.ID
	} else {
		tab.FileHash = fileHash
		tab.DatasetID = datasetID(fileHash, opts)
	}

	if err := a.addTab(ctx, tab); err != nil {
		return nil, err
	}
	return tab, nil
}

// OpenRowsTab opens rows that are already in memory
func (a *App) OpenRowsTab(ctx context.Context, name string, header []string, rows []query.Row) (*Tab, error) {
	tab := newTab(a, name)
	tab.Header = header
	tab.rows = rows
	tab.DatasetID = "rows-" + uuid.NewString()
	if err := a.addTab(ctx, tab); err != nil {
		return nil, err
	}
	return tab, nil
}

// OpenRemoteTab opens a tab whose filtering, sorting and paging are done by
// provider. Grouping and pivoting run locally on each returned page.
func (a *App) OpenRemoteTab(ctx context.Context, name string, header []string, provider query.DataProvider) (*Tab, error) {
	tab := newTab(a, name)
	tab.Header = header
	tab.remote = query.NewRemoteSource(provider, a.logger)
	tab.remote.OnError(func(res query.RefreshResult) {
		a.logf("warn", "[TAB_REFRESH_ERROR] %s request=%s: %v", tab.ID, res.RequestID, res.Err)
	})
	if err := a.addTab(ctx, tab); err != nil {
		return nil, err
	}
	return tab, nil
}

func (a *App) addTab(ctx context.Context, tab *Tab) error {
	if _, err := tab.Recompute(ctx); err != nil {
		return fmt.Errorf("failed to compute %s: %w", tab.Name, err)
	}

	a.tabsMu.Lock()
	a.tabs[tab.ID] = tab
	a.order = append(a.order, tab.ID)
	a.activeTabID = tab.ID
	a.tabsMu.Unlock()

	a.logf("info", "[OPEN_TAB] %s as %s (%d rows, dataset %s)", tab.Name, tab.ID, len(tab.rows), tab.DatasetID)
	return nil
}

// GetTab returns a tab by ID, nil when it does not exist
func (a *App) GetTab(tabID string) *Tab {
	a.tabsMu.RLock()
	defer a.tabsMu.RUnlock()
	return a.tabs[tabID]
}

// GetActiveTab returns the active tab, nil when none is open
func (a *App) GetActiveTab() *Tab {
	a.tabsMu.RLock()
	defer a.tabsMu.RUnlock()
	if a.activeTabID == "" {
		return nil
	}
	return a.tabs[a.activeTabID]
}

// GetActiveTabID returns the active tab ID
func (a *App) GetActiveTabID() string {
	a.tabsMu.RLock()
	defer a.tabsMu.RUnlock()
	return a.activeTabID
}

// GetTabs returns the open tabs in the order they were opened
func (a *App) GetTabs() []interfaces.TabInfo {
	a.tabsMu.RLock()
	tabs := make([]*Tab, 0, len(a.order))
	for _, id := range a.order {
		tabs = append(tabs, a.tabs[id])
	}
	a.tabsMu.RUnlock()

	infos := make([]interfaces.TabInfo, len(tabs))
	for i, tab := range tabs {
		infos[i] = tab.Info()
	}
	return infos
}

// SetActiveTab sets the active tab by ID
func (a *App) SetActiveTab(tabID string) error {
	a.tabsMu.Lock()
	defer a.tabsMu.Unlock()

	if _, exists := a.tabs[tabID]; !exists {
		return fmt.Errorf("tab not found: %s", tabID)
	}
	a.activeTabID = tabID
	return nil
}

// CloseTab closes a tab. Memoized states of its dataset are dropped unless
// another open tab shows the same dataset.
func (a *App) CloseTab(tabID string) error {
	a.tabsMu.Lock()
	tab, exists := a.tabs[tabID]
	if !exists {
		a.tabsMu.Unlock()
		return fmt.Errorf("tab not found: %s", tabID)
	}
	delete(a.tabs, tabID)
	for i, id := range a.order {
		if id == tabID {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}

	// The next tab in open order becomes active
	if a.activeTabID == tabID {
		a.activeTabID = ""
		if len(a.order) > 0 {
			a.activeTabID = a.order[len(a.order)-1]
		}
	}

	shared := false
	for _, other := range a.tabs {
		if other.DatasetID == tab.DatasetID {
			shared = true
			break
		}
	}
	a.tabsMu.Unlock()

	if !shared && !tab.IsRemote() {
		removed := a.engine.InvalidateDataset(tab.DatasetID)
		a.logf("debug", "[CLOSE_TAB] %s: dropped %d cached entries", tabID, removed)
	}
	return nil
}
