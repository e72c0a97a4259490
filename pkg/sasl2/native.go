//go:build sasl2 && cgo

package sasl2

/*
#include <stdlib.h>
#include <sasl/sasl.h>

static const char *mech_at(const char **list, int i) { return list[i]; }
*/
import "C"

import "unsafe"

type native struct{}

// Native returns the cgo binding to the linked libsasl2.
func Native() Library { return native{} }

func (native) ClientInit() error {
	return status("sasl_client_init", C.sasl_client_init(nil))
}

func (native) ServerInit(app string) error {
	capp := C.CString(app)
	defer C.free(unsafe.Pointer(capp))
	return status("sasl_server_init", C.sasl_server_init(nil, capp))
}

func (native) Done() { C.sasl_done() }

func (native) VersionInfo() (VersionInfo, error) {
	var impl, ver, patch *C.char
	var major, minor, step C.int
	C.sasl_version_info(&impl, &ver, &major, &minor, &step, &patch)
	return VersionInfo{
		Implementation: C.GoString(impl),
		Version:        C.GoString(ver),
		Major:          int(major),
		Minor:          int(minor),
		Step:           int(step),
		Patch:          C.GoString(patch),
	}, nil
}

// Mechanisms lists the mechanisms loaded after initialisation.
func (native) Mechanisms() []string {
	list := C.sasl_global_listmech()
	if list == nil {
		return nil
	}
	var mechs []string
	for i := 0; ; i++ {
		m := C.mech_at(list, C.int(i))
		if m == nil {
			return mechs
		}
		mechs = append(mechs, C.GoString(m))
	}
}

func status(op string, rc C.int) error {
	if rc == C.SASL_OK {
		return nil
	}
	return &Error{Op: op, Code: int(rc), Message: C.GoString(C.sasl_errstring(rc, nil, nil))}
}
