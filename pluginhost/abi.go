package pluginhost

// InterfaceVersion is the host's plugin ABI version. A plugin is loaded
// only if get_plugin_interface_version returns exactly this value — see
// SPEC_FULL.md §3 "ABI version equality". Unlike original_source's
// LoadPlugin (which rejects only when the plugin's reported version is
// strictly greater), this is a strict equality check.
const InterfaceVersion uint64 = 1

// Required plugin entry points.
const (
	symGetInterfaceVersion = "get_plugin_interface_version"
	symStart               = "start"
	symOnMainLoop          = "on_main_loop"
	symOnClose             = "on_close"
)

// hostAPISlotPrefix is prepended to every host API entry's stable symbol
// name to form the exported pointer-to-pointer slot the plugin must expose,
// generalizing original_source's ADD_FUNCTION_TO_PLUGIN macro's
// "yuzupluginset_" + name convention (see plugin_manager.cpp).
const hostAPISlotPrefix = "yuzu_"

func hostAPISlotName(api string) string {
	return hostAPISlotPrefix + api
}
