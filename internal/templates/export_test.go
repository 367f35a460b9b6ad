package templates

// Reloaded signals after each successful reload.
func (w *Watcher) Reloaded() <-chan struct{} { return w.reloaded }
