package boiler

import "github.com/arloliu/go-kotel/exchange"

// Device command selectors.
const (
	CmdControlStatus exchange.Cmd = 'c'
	CmdSetFuel       exchange.Cmd = 'f'
	CmdGetConfig     exchange.Cmd = 'C'
	CmdSetConfig     exchange.Cmd = 'S'
	CmdGetStats      exchange.Cmd = 'T'
	CmdEnumTasks     exchange.Cmd = '#'
	CmdGenerateCode  exchange.Cmd = 'G'
	CmdUnpairAll     exchange.Cmd = 'U'
	CmdReboot        exchange.Cmd = '!'
	CmdClearStats    exchange.Cmd = '0'

	// CmdPing is reserved by the firmware but never answered; sending it stalls the pipeline
	// until the idle timeout.
	CmdPing exchange.Cmd = 'p'
)

// Sector identifies a raw storage sector. Sectors are requested with their number as the
// selector byte, not its ASCII digit.
type Sector uint8

// Storage sectors.
const (
	SectorConfig     Sector = 0
	SectorTray       Sector = 1
	SectorUtil1      Sector = 2
	SectorCounters1  Sector = 3
	SectorUtil2      Sector = 4
	SectorTempSensor Sector = 5
	SectorWiFiSSID   Sector = 6
	SectorWiFiPwd    Sector = 7
	SectorWiFiNet    Sector = 8
	SectorCounters2  Sector = 9
)

// Cmd returns the selector requesting the sector.
func (s Sector) Cmd() exchange.Cmd {
	return exchange.Cmd(s)
}
