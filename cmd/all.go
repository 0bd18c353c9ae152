package cmd

import (
	_ "apphost/cmd/control"
	_ "apphost/cmd/graph"
	_ "apphost/cmd/launch"
	_ "apphost/cmd/root"
)
