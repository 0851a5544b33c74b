package vulkan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/kumaashi/gcmd"
	"github.com/vulkan-go/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

const (
	validationLayer      = "VK_LAYER_KHRONOS_validation"
	debugReportExtension = "VK_EXT_debug_report"
	swapchainExtension   = "VK_KHR_swapchain"
)

var (
	loaderOnce sync.Once
	loaderErr  error
)

// initLoader points the Vulkan loader at glfw. glfw.Init must have been
// called.
func initLoader() error {
	loaderOnce.Do(func() {
		vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
		loaderErr = vk.Init()
	})
	return loaderErr
}

// SupportedLayers returns the instance layers known to the loader.
func SupportedLayers() ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	layers := make([]vk.LayerProperties, count)
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, layers)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, l := range layers {
		l.Deref()
		names = append(names, vk.ToString(l.LayerName[:]))
	}
	return names, nil
}

// SupportedExtensions returns the instance extensions known to the loader.
func SupportedExtensions() ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return nil, err
	}
	exts := make([]vk.ExtensionProperties, count)
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &count, exts)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, e := range exts {
		e.Deref()
		names = append(names, vk.ToString(e.ExtensionName[:]))
	}
	return names, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + "\x00"
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

// createInstance creates the instance with the extensions glfw requires and,
// when validation is set and available, the Khronos validation layer.
func createInstance(appName string, required []string, validation bool, log *slog.Logger) (vk.Instance, bool, error) {
	extensions := append([]string(nil), required...)
	var layers []string
	debug := false
	if validation {
		supported, err := SupportedLayers()
		switch {
		case err != nil:
			log.Warn("enumerate layers", "err", err)
		case !contains(supported, validationLayer):
			log.Warn("validation layer not available", "layer", validationLayer)
		default:
			layers = append(layers, validationLayer)
		}
		if exts, err := SupportedExtensions(); err == nil && contains(exts, debugReportExtension) {
			extensions = append(extensions, debugReportExtension)
			debug = true
		}
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         vk.MakeVersion(1, 0, 0),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PApplicationName:   safeString(appName),
		PEngineName:        safeString("gcmd"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}
	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return nil, false, fmt.Errorf("%w: create instance: %v", gcmd.ErrSetupFatal, err)
	}
	vk.InitInstance(instance)
	log.Info("instance created", "extensions", extensions, "layers", layers)
	return instance, debug, nil
}

// CreateInstance creates an instance without surface extensions, enough to
// enumerate physical devices. glfw.Init must have been called.
func CreateInstance(appName string) (vk.Instance, error) {
	if err := initLoader(); err != nil {
		return nil, fmt.Errorf("%w: vulkan loader: %v", gcmd.ErrSetupFatal, err)
	}
	instance, _, err := createInstance(appName, nil, false, gcmd.Logger())
	return instance, err
}

// setDebugCallback routes validation messages to the gcmd logger.
func setDebugCallback(instance vk.Instance) (vk.DebugReportCallback, error) {
	var callback vk.DebugReportCallback
	ret := vk.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit),
		PfnCallback: debugReport,
	}, nil, &callback)
	return callback, vk.Error(ret)
}

func debugReportLevel(flags vk.DebugReportFlags) slog.Level {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return slog.LevelError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		return slog.LevelWarn
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	gcmd.Logger().Log(context.Background(), debugReportLevel(flags), pMessage,
		"layer", pLayerPrefix,
		"code", messageCode,
		"object", object)
	return vk.Bool32(vk.False)
}
