package store

const defaultDirPerm = 0o755

type Config struct {
	DBPath string
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}

	return nil
}
