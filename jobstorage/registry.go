package jobstorage

import "oss.nandlabs.io/jobforge/managers"

var backends = managers.NewItemManager[Factory]()

// RegisterStorage names a Factory so GetStorage can construct that backend
// by name, the way codec.GetDefault names a codec. The in-memory and file
// backends register themselves under "memory" and "file" via init.
func RegisterStorage(name string, f Factory) {
	backends.Register(name, f)
}

// GetStorage constructs the backend registered under name with dsn, or
// ErrUnknownBackend if no Factory was registered under that name.
func GetStorage(name, dsn string) (Storage, error) {
	f := backends.Get(name)
	if f == nil {
		return nil, ErrUnknownBackend
	}
	return f(dsn)
}
