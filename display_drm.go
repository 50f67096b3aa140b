//go:build !headless

// display_drm.go - direct-rendering-manager mode-setting backend
//
// The DRM uAPI has no cgo-free Go binding, so this talks to the kernel
// directly: golang.org/x/sys/unix for the syscalls, hand-rolled
// request codes and structs for the mode-setting ioctls. The sequence
// is enumerate resources, pick the first connected connector, bind a
// controller, allocate and map a dumb buffer, install the framebuffer,
// and save the prior controller state for restore on Close.

package main

import (
	"fmt"
	"log/slog"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

func init() { registerFeature("display: drm/kms") }

const (
	drmIoctlType = 0x64 // 'd'

	drmModeGetResources = 0xA0
	drmModeGetConnector = 0xA7
	drmModeGetEncoder   = 0xA6
	drmModeGetCrtc      = 0xA1
	drmModeSetCrtc      = 0xA2
	drmModeCreateDumb   = 0xB2
	drmModeMapDumb      = 0xB3
	drmModeDestroyDumb  = 0xB4
	drmModeAddFB2       = 0xB8
	drmModeRmFB         = 0xAF

	drmSetMaster = 0x1e
	drmDropMaster = 0x1f

	drmModeConnected = 1

	drmFourCCXR24 = 0x34325258 // 'X','R','2','4' little-endian
)

func drmIOWR(nr, size uintptr) uintptr {
	const iocReadWrite = 3
	return (iocReadWrite << 30) | (drmIoctlType << 8) | nr | (size << 16)
}

// drmIO encodes the argument-less requests (SET_MASTER, DROP_MASTER).
func drmIO(nr uintptr) uintptr {
	return (drmIoctlType << 8) | nr
}

type drmModeCardRes struct {
	FbIDPtr, CrtcIDPtr, ConnectorIDPtr, EncoderIDPtr uint64
	CountFbs, CountCrtcs, CountConnectors, CountEncoders uint32
	MinWidth, MaxWidth, MinHeight, MaxHeight uint32
}

type drmModeModeInfo struct {
	Clock                                          uint32
	Hdisplay, HsyncStart, HsyncEnd, Htotal, Hskew   uint16
	Vdisplay, VsyncStart, VsyncEnd, Vtotal, Vscan   uint16
	Vrefresh                                        uint32
	Flags, Type                                     uint32
	Name                                            [32]byte
}

type drmModeGetConnectorIoctl struct {
	EncodersPtr, ModesPtr, PropsPtr, PropValuesPtr uint64
	CountModes, CountProps, CountEncoders           uint32
	EncoderID, ConnectorID, ConnectorTypeID         uint32
	ConnectorTypeSubID                              uint32
	Connection                                      uint32
	MmWidth, MmHeight                               uint32
	Subpixel                                        uint32
	Pad                                             uint32
}

type drmModeGetEncoderIoctl struct {
	EncoderID, EncoderType uint32
	CrtcID                 uint32
	PossibleCrtcs          uint32
	PossibleClones         uint32
}

type drmModeCrtcIoctl struct {
	SetConnectorsPtr uint64
	CountConnectors  uint32
	CrtcID, FbID     uint32
	X, Y             uint32
	GammaSize        uint32
	ModeValid        uint32
	Mode             drmModeModeInfo
}

type drmModeCreateDumbIoctl struct {
	Height, Width uint32
	Bpp, Flags    uint32
	Handle        uint32
	Pitch         uint32
	Size          uint64
}

type drmModeMapDumbIoctl struct {
	Handle uint32
	Pad    uint32
	Offset uint64
}

type drmModeDestroyDumbIoctl struct {
	Handle uint32
}

type drmModeFBCmd2Ioctl struct {
	FbID          uint32
	Width, Height uint32
	PixelFormat   uint32
	Flags         uint32
	Handles       [4]uint32
	Pitches       [4]uint32
	Offsets       [4]uint32
	Modifier      [4]uint64
}

type drmDisplay struct {
	logger *slog.Logger

	fd     int
	devPath string

	crtcID    uint32
	connID    uint32
	fbID      uint32
	dumbHandle uint32
	savedCrtc drmModeCrtcIoctl

	cfg    DisplayConfig
	mapped []byte
	shadow []byte
}

func newDisplaySurface(logger *slog.Logger) (DisplaySurface, error) {
	return &drmDisplay{logger: logger}, nil
}

func (d *drmDisplay) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (d *drmDisplay) Open() error {
	for _, path := range drmCandidateDevices {
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			continue
		}
		d.fd = fd
		d.devPath = path
		if err := d.probeAndInstall(); err != nil {
			unix.Close(fd)
			d.fd = 0
			continue
		}
		d.logger.Info("display: opened", "device", path, "width", d.cfg.Width, "height", d.cfg.Height)
		return nil
	}
	return fatalf("display open", "no usable scan-out device with a connected monitor", nil)
}

func (d *drmDisplay) probeAndInstall() error {
	var res drmModeCardRes
	if err := d.ioctl(drmIOWR(drmModeGetResources, unsafe.Sizeof(res)), unsafe.Pointer(&res)); err != nil {
		return fmt.Errorf("get resources: %w", err)
	}
	if res.CountConnectors == 0 || res.CountCrtcs == 0 {
		return fmt.Errorf("no connectors or crtcs reported")
	}

	// The second GETRESOURCES pass fills every array whose count is
	// non-zero, so all four need real backing storage.
	connIDs := make([]uint32, res.CountConnectors)
	res.ConnectorIDPtr = uint64(uintptr(unsafe.Pointer(&connIDs[0])))
	crtcIDs := make([]uint32, res.CountCrtcs)
	res.CrtcIDPtr = uint64(uintptr(unsafe.Pointer(&crtcIDs[0])))
	var encIDs, fbIDs []uint32
	if res.CountEncoders > 0 {
		encIDs = make([]uint32, res.CountEncoders)
		res.EncoderIDPtr = uint64(uintptr(unsafe.Pointer(&encIDs[0])))
	}
	if res.CountFbs > 0 {
		fbIDs = make([]uint32, res.CountFbs)
		res.FbIDPtr = uint64(uintptr(unsafe.Pointer(&fbIDs[0])))
	}
	err := d.ioctl(drmIOWR(drmModeGetResources, unsafe.Sizeof(res)), unsafe.Pointer(&res))
	runtime.KeepAlive(connIDs)
	runtime.KeepAlive(crtcIDs)
	runtime.KeepAlive(encIDs)
	runtime.KeepAlive(fbIDs)
	if err != nil {
		return fmt.Errorf("get resources (ids): %w", err)
	}

	var chosenConn *drmModeGetConnectorIoctl
	var chosenMode drmModeModeInfo
	var connID uint32
	for _, id := range connIDs {
		var conn drmModeGetConnectorIoctl
		conn.ConnectorID = id
		if err := d.ioctl(drmIOWR(drmModeGetConnector, unsafe.Sizeof(conn)), unsafe.Pointer(&conn)); err != nil {
			continue
		}
		if conn.Connection != drmModeConnected || conn.CountModes == 0 {
			continue
		}
		modes := make([]drmModeModeInfo, conn.CountModes)
		conn.ModesPtr = uint64(uintptr(unsafe.Pointer(&modes[0])))
		// Clear the other counts so the second pass only fills modes.
		conn.CountProps = 0
		conn.CountEncoders = 0
		ierr := d.ioctl(drmIOWR(drmModeGetConnector, unsafe.Sizeof(conn)), unsafe.Pointer(&conn))
		runtime.KeepAlive(modes)
		if ierr != nil {
			continue
		}
		chosenConn = &conn
		chosenMode = modes[0]
		connID = id
		break
	}
	if chosenConn == nil {
		return fmt.Errorf("no connected connector with a usable mode")
	}

	crtcID, err := d.selectCrtc(chosenConn, crtcIDs)
	if err != nil {
		return err
	}

	if err := d.ioctl(drmIO(drmSetMaster), nil); err != nil {
		d.logger.Warn("display: set master failed (continuing)", "err", err)
	}

	if err := d.saveCrtcState(crtcID); err != nil {
		return err
	}

	width, height := int(chosenMode.Hdisplay), int(chosenMode.Vdisplay)
	handle, pitch, size, err := d.createDumbBuffer(width, height)
	if err != nil {
		return err
	}
	d.dumbHandle = handle

	fbID, err := d.addFB(width, height, pitch, handle)
	if err != nil {
		d.destroyDumbBuffer(handle)
		return err
	}
	d.fbID = fbID

	mapped, err := d.mapDumbBuffer(handle, size)
	if err != nil {
		d.removeFB(fbID)
		d.destroyDumbBuffer(handle)
		return err
	}
	d.mapped = mapped
	d.shadow = make([]byte, size)

	if err := d.setCrtc(crtcID, connID, fbID, chosenMode); err != nil {
		unix.Munmap(mapped)
		d.removeFB(fbID)
		d.destroyDumbBuffer(handle)
		return err
	}

	d.crtcID = crtcID
	d.connID = connID
	d.cfg = DisplayConfig{Width: width, Height: height, Stride: int(pitch), Size: int(size)}
	return nil
}

func (d *drmDisplay) selectCrtc(conn *drmModeGetConnectorIoctl, crtcIDs []uint32) (uint32, error) {
	if conn.EncoderID != 0 {
		var enc drmModeGetEncoderIoctl
		enc.EncoderID = conn.EncoderID
		if err := d.ioctl(drmIOWR(drmModeGetEncoder, unsafe.Sizeof(enc)), unsafe.Pointer(&enc)); err == nil && enc.CrtcID != 0 {
			return enc.CrtcID, nil
		}
	}
	if len(crtcIDs) == 0 {
		return 0, fmt.Errorf("no crtc available")
	}
	return crtcIDs[0], nil
}

func (d *drmDisplay) saveCrtcState(crtcID uint32) error {
	d.savedCrtc = drmModeCrtcIoctl{CrtcID: crtcID}
	return d.ioctl(drmIOWR(drmModeGetCrtc, unsafe.Sizeof(d.savedCrtc)), unsafe.Pointer(&d.savedCrtc))
}

func (d *drmDisplay) createDumbBuffer(width, height int) (handle, pitch uint32, size uint64, err error) {
	req := drmModeCreateDumbIoctl{Width: uint32(width), Height: uint32(height), Bpp: 32}
	if ierr := d.ioctl(drmIOWR(drmModeCreateDumb, unsafe.Sizeof(req)), unsafe.Pointer(&req)); ierr != nil {
		return 0, 0, 0, fmt.Errorf("create dumb buffer: %w", ierr)
	}
	return req.Handle, req.Pitch, req.Size, nil
}

func (d *drmDisplay) destroyDumbBuffer(handle uint32) {
	req := drmModeDestroyDumbIoctl{Handle: handle}
	_ = d.ioctl(drmIOWR(drmModeDestroyDumb, unsafe.Sizeof(req)), unsafe.Pointer(&req))
}

func (d *drmDisplay) addFB(width, height int, pitch, handle uint32) (uint32, error) {
	req := drmModeFBCmd2Ioctl{
		Width: uint32(width), Height: uint32(height),
		PixelFormat: drmFourCCXR24,
	}
	req.Handles[0] = handle
	req.Pitches[0] = pitch
	if err := d.ioctl(drmIOWR(drmModeAddFB2, unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return 0, fmt.Errorf("add framebuffer: %w", err)
	}
	return req.FbID, nil
}

func (d *drmDisplay) removeFB(fbID uint32) {
	id := fbID
	_ = d.ioctl(drmIOWR(drmModeRmFB, unsafe.Sizeof(id)), unsafe.Pointer(&id))
}

func (d *drmDisplay) mapDumbBuffer(handle uint32, size uint64) ([]byte, error) {
	req := drmModeMapDumbIoctl{Handle: handle}
	if err := d.ioctl(drmIOWR(drmModeMapDumb, unsafe.Sizeof(req)), unsafe.Pointer(&req)); err != nil {
		return nil, fmt.Errorf("map dumb buffer: %w", err)
	}
	data, err := unix.Mmap(d.fd, int64(req.Offset), int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return data, nil
}

func (d *drmDisplay) setCrtc(crtcID, connID, fbID uint32, mode drmModeModeInfo) error {
	connIDs := []uint32{connID}
	req := drmModeCrtcIoctl{
		CrtcID:          crtcID,
		FbID:            fbID,
		SetConnectorsPtr: uint64(uintptr(unsafe.Pointer(&connIDs[0]))),
		CountConnectors: 1,
		ModeValid:       1,
		Mode:            mode,
	}
	err := d.ioctl(drmIOWR(drmModeSetCrtc, unsafe.Sizeof(req)), unsafe.Pointer(&req))
	runtime.KeepAlive(connIDs)
	if err != nil {
		return fmt.Errorf("set crtc: %w", err)
	}
	return nil
}

func (d *drmDisplay) Config() DisplayConfig { return d.cfg }
func (d *drmDisplay) Shadow() []byte        { return d.shadow }

func (d *drmDisplay) Commit() error {
	copy(d.mapped, d.shadow)
	return nil
}

func (d *drmDisplay) DropMaster() error {
	return d.ioctl(drmIO(drmDropMaster), nil)
}

func (d *drmDisplay) AcquireMaster() error {
	return d.ioctl(drmIO(drmSetMaster), nil)
}

func (d *drmDisplay) Close() error {
	if d.fd == 0 {
		return nil
	}
	// GETCRTC returns no connector list, so the restore names ours.
	restore := d.savedCrtc
	connID := d.connID
	restore.SetConnectorsPtr = uint64(uintptr(unsafe.Pointer(&connID)))
	restore.CountConnectors = 1
	rerr := d.ioctl(drmIOWR(drmModeSetCrtc, unsafe.Sizeof(restore)), unsafe.Pointer(&restore))
	runtime.KeepAlive(&connID)
	if rerr != nil {
		d.logger.Warn("display: restoring saved crtc failed", "err", rerr)
	}
	if d.mapped != nil {
		_ = unix.Munmap(d.mapped)
	}
	if d.fbID != 0 {
		d.removeFB(d.fbID)
	}
	if d.dumbHandle != 0 {
		d.destroyDumbBuffer(d.dumbHandle)
	}
	err := unix.Close(d.fd)
	d.fd = 0
	return err
}
