// Package dbusapi exposes the bootloader configuration on the message bus.
//
// It serves two interfaces at a single object path: Config (read and edit the
// default file, plus the FileChanged signal) and BootEntry (read the
// generated boot menu). Payloads are JSON strings.
package dbusapi

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/opensuse/bootkitd/internal/config"
	"github.com/opensuse/bootkitd/internal/grub"
)

const (
	// BusName is the well-known name the daemon claims.
	BusName = "org.opensuse.bootkit"

	// ObjectPath is where both interfaces are served.
	ObjectPath = dbus.ObjectPath("/org/opensuse/bootkit")

	// ConfigInterface serves GetConfig/SetConfig and the FileChanged signal.
	ConfigInterface = "org.opensuse.bootkit.Config"

	// BootEntryInterface serves GetEntries.
	BootEntryInterface = "org.opensuse.bootkit.BootEntry"

	errorPrefix = "org.opensuse.bootkit.Error"
)

// Connect opens the message bus connection, session or system.
func Connect(session bool) (*dbus.Conn, error) {
	if session {
		return dbus.ConnectSessionBus()
	}
	return dbus.ConnectSystemBus()
}

// Service bridges inbound bus requests to the grub model and the snapshot
// store.
type Service struct {
	conn     *dbus.Conn
	sdb      *sql.DB
	paths    config.Paths
	activity *ActivityMonitor
	log      *slog.Logger
}

// NewService wires the handler layer. The connection stays owned by the
// caller, which also controls its shutdown.
func NewService(conn *dbus.Conn, sdb *sql.DB, paths config.Paths) *Service {
	return &Service{
		conn:     conn,
		sdb:      sdb,
		paths:    paths,
		activity: &ActivityMonitor{},
		log:      slog.Default(),
	}
}

// Activity returns the monitor the idle detector polls.
func (s *Service) Activity() *ActivityMonitor { return s.activity }

// Export registers both interfaces plus introspection data and claims the
// well-known bus name.
func (s *Service) Export() error {
	if err := s.conn.Export(configObject{s}, ObjectPath, ConfigInterface); err != nil {
		return fmt.Errorf("failed to export config interface: %w", err)
	}
	if err := s.conn.Export(bootEntryObject{s}, ObjectPath, BootEntryInterface); err != nil {
		return fmt.Errorf("failed to export boot entry interface: %w", err)
	}
	if err := s.conn.Export(introspect.NewIntrospectable(introspectNode()), ObjectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspection data: %w", err)
	}

	reply, err := s.conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name %s: %w", BusName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s is already taken", BusName)
	}
	return nil
}

// EmitFileChanged broadcasts that one of the watched files was modified
// outside the daemon. The signal carries no payload; clients re-read through
// GetConfig.
func (s *Service) EmitFileChanged() error {
	if err := s.conn.Emit(ObjectPath, ConfigInterface+".FileChanged"); err != nil {
		return fmt.Errorf("failed to emit FileChanged: %w", err)
	}
	return nil
}

// configObject implements org.opensuse.bootkit.Config.
type configObject struct {
	svc *Service
}

func (o configObject) GetConfig() (string, *dbus.Error) {
	s := o.svc
	s.activity.Touch()

	file, err := grub.Load(s.paths.GrubConfig)
	if err != nil {
		s.log.Error("GetConfig failed", "err", err)
		return "", asBusError(err)
	}

	payload, err := marshalConfig(file)
	if err != nil {
		s.log.Error("GetConfig failed", "err", err)
		return "", asBusError(err)
	}
	return payload, nil
}

func (o configObject) SetConfig(edits string) (string, *dbus.Error) {
	s := o.svc
	s.activity.Touch()

	result, err := s.applyEdits(edits)
	if err != nil {
		s.log.Error("SetConfig failed", "err", err)
		return "", asBusError(err)
	}
	return result, nil
}

// bootEntryObject implements org.opensuse.bootkit.BootEntry.
type bootEntryObject struct {
	svc *Service
}

func (o bootEntryObject) GetEntries() (string, *dbus.Error) {
	s := o.svc
	s.activity.Touch()

	catalog, err := grub.BuildCatalog(s.paths.BootMenu, s.paths.GrubEnv)
	if err != nil {
		s.log.Error("GetEntries failed", "err", err)
		return "", asBusError(err)
	}

	payload, err := marshalEntries(catalog)
	if err != nil {
		s.log.Error("GetEntries failed", "err", err)
		return "", asBusError(err)
	}
	return payload, nil
}

// asBusError maps internal errors onto named bus errors so callers can tell
// a corrupt file from an I/O problem. The context string attached at the
// point of failure travels unchanged in the error body.
func asBusError(err error) *dbus.Error {
	name := errorPrefix + ".IO"

	var parseErr *grub.ParseError
	switch {
	case errors.As(err, &parseErr):
		name = errorPrefix + ".Parse"
	case errors.Is(err, errBadEditPayload):
		name = errorPrefix + ".InvalidArgument"
	case errors.Is(err, errSnapshot):
		name = errorPrefix + ".Persistence"
	}

	return dbus.NewError(name, []interface{}{err.Error()})
}

func introspectNode() *introspect.Node {
	return &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: ConfigInterface,
				Methods: []introspect.Method{
					{Name: "GetConfig", Args: []introspect.Arg{
						{Name: "config", Type: "s", Direction: "out"},
					}},
					{Name: "SetConfig", Args: []introspect.Arg{
						{Name: "edits", Type: "s", Direction: "in"},
						{Name: "config", Type: "s", Direction: "out"},
					}},
				},
				Signals: []introspect.Signal{
					{Name: "FileChanged"},
				},
			},
			{
				Name: BootEntryInterface,
				Methods: []introspect.Method{
					{Name: "GetEntries", Args: []introspect.Arg{
						{Name: "entries", Type: "s", Direction: "out"},
					}},
				},
			},
		},
	}
}
