package registry

import (
	_ "github.com/padrelay/padrelay/device/uinput"  // Register uinput backend
	_ "github.com/padrelay/padrelay/device/xbox360" // Register VIIPER xbox360 backend
)
