package artifacts

import "fmt"

// Artifact store drivers
const (
	DriverFS = "fs"
	DriverS3 = "s3"
)

type Options struct {
	Driver string
	Root   string
	S3     S3Config
}

func Open(opts Options) (Store, error) {
	switch opts.Driver {
	case DriverFS, "":
		return NewFSStore(opts.Root), nil
	case DriverS3:
		return NewS3Store(opts.S3)
	default:
		return nil, fmt.Errorf("unknown artifact driver %q", opts.Driver)
	}
}
