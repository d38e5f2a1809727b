package store

import "github.com/ManuGH/vidsync/internal/config"

func storeConfig(driver, path string) config.StoreConfig {
	return config.StoreConfig{Driver: driver, Path: path}
}
