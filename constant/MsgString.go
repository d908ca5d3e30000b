package constant

const (
	PROXY_SERVER_NAME    = "Digital Operating Room Proxy Server"
	PROXY_SERVER_VERSION = "1.0.0.3"
	START_PROXY_SERVER   = "Start " + PROXY_SERVER_NAME + "."
	CLOSE_PROXY_SERVER   = "Closed proxy server."

	START_AS_DAEMON = "Start as a daemon."

	SUCCESS_READ_CONFIG = "Success for reading config information."

	FAILED_READ_CONFIG   = "Failed to read configure file."
	FAILED_CREATE_SERVER = "Failed to create RTSP proxy server."

	DORPS_CONFIG_FILE = "dorps.conf"

	HELP_MESSAGE = "/h /help\tPrint this message and quit.\n/v /version\tPrint the version of the server and quit.\n" +
		"/d /daemon\n/u /uninstall"
	HELP_DAEMON = "/d /daemon\tStart Server as a daemon"
)
