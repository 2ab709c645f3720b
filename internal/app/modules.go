package app

import (
	"github.com/specialistvlad/tsflow/internal/registry"
	"github.com/specialistvlad/tsflow/modules/env_vars"
	"github.com/specialistvlad/tsflow/modules/evaluate"
	"github.com/specialistvlad/tsflow/modules/fill"
	"github.com/specialistvlad/tsflow/modules/message"
	"github.com/specialistvlad/tsflow/modules/opendatastore"
	"github.com/specialistvlad/tsflow/modules/readts"
	"github.com/specialistvlad/tsflow/modules/setinputperiod"
	"github.com/specialistvlad/tsflow/modules/setproperty"
	"github.com/specialistvlad/tsflow/modules/setworkingdir"
	"github.com/specialistvlad/tsflow/modules/writets"
)

// CoreModules is the definitive list of all command modules compiled into
// the tsflow binary.
func CoreModules() []registry.Module {
	return []registry.Module{
		&setproperty.Module{},
		&setworkingdir.Module{},
		&setinputperiod.Module{},
		&env_vars.Module{},
		&opendatastore.Module{},
		&readts.Module{},
		&fill.Module{},
		&writets.Module{},
		&evaluate.Module{},
		&message.Module{},
	}
}
