package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/alexcesaro/log"
	"github.com/alexcesaro/log/golog"
	flags "github.com/jessevdk/go-flags"
	"github.com/objbus/objbus/bus"
	"github.com/objbus/objbus/bus/ws"
	"github.com/objbus/objbus/media"
)

// Version of the binary, assigned during build.
var Version string = "dev"

var callTimeout = time.Second * 5

// Options contains the flag options
type Options struct {
	Verbose []bool `short:"v" long:"verbose" description:"Show verbose logging."`
	Version bool   `long:"version" description:"Print version and exit."`

	Serve struct {
		Bind        string `long:"bind" description:"Address and port to listen on. (default: 0.0.0.0:8090)"`
		Store       string `long:"store" description:"Storage driver. (persist|memory)"`
		DataDir     string `long:"datadir" description:"Directory for the persistent store."`
		Payload     string `long:"payload" description:"Payload encoding. (json|cbor)"`
		AllowOrigin string `long:"allow-origin" description:"Value for the Access-Control-Allow-Origin header."`
	} `command:"serve" description:"Host the media service on a websocket bus."`

	Call struct {
		Args struct {
			URL    string   `positional-arg-name:"url" description:"Websocket URL of the bus peer."`
			Path   string   `positional-arg-name:"path" description:"Object path to call."`
			Iface  string   `positional-arg-name:"interface" description:"Interface name."`
			Method string   `positional-arg-name:"method" description:"Method name."`
			Params []string `positional-arg-name:"params" description:"Arguments, as JSON values."`
		} `positional-args:"yes"`
		Notify  bool   `long:"notify" description:"Send as a one-way notification and exit."`
		Payload string `long:"payload" description:"Payload encoding. (json|cbor)" default:"json"`
	} `command:"call" description:"Call a method on a remote object."`

	Watch struct {
		Args struct {
			URL string `positional-arg-name:"url" description:"Websocket URL of the media service."`
		} `positional-args:"yes"`
		Path    string `long:"path" description:"Media object path." default:"/org/chromium/bluetooth/media"`
		Payload string `long:"payload" description:"Payload encoding. (json|cbor)" default:"json"`
	} `command:"watch" description:"Subscribe to media device events and print them."`
}

const callUsage = `Examples:
* Ask the media service to start an audio session:
  $ objbus call ws://127.0.0.1:8090/ /org/chromium/bluetooth/media org.chromium.bluetooth.BluetoothMedia StartSession

* Announce a device, passing arguments as JSON values:
  $ objbus call ws://127.0.0.1:8090/ /org/chromium/bluetooth/media org.chromium.bluetooth.BluetoothMedia Connect '"AA:BB:CC:DD:EE:FF"'
`

var logLevels = []log.Level{
	log.Warning,
	log.Info,
	log.Debug,
}

func subcommand(cmd string, options Options) error {
	switch cmd {
	case "serve":
		config, err := loadServeConfig(options)
		if err != nil {
			return err
		}
		return runServe(config)
	case "call":
		return runCall(options)
	case "watch":
		return runWatch(options)
	}
	return nil
}

func main() {
	options := Options{}
	parser := flags.NewParser(&options, flags.Default)
	parser.SubcommandsOptional = true
	p, err := parser.Parse()
	if err != nil {
		if p == nil {
			fmt.Println(err)
		}
		if flagErr, ok := err.(*flags.Error); ok && flagErr.Type == flags.ErrHelp && parser.Active != nil {
			// Print additional usage help when run with --help
			switch parser.Active.Name {
			case "call":
				exit(0, callUsage)
			}
		}
		return
	}

	if options.Version {
		fmt.Println(Version)
		os.Exit(0)
	}

	// Figure out the log level
	numVerbose := len(options.Verbose)
	if numVerbose >= len(logLevels) {
		numVerbose = len(logLevels) - 1
	}

	logLevel := logLevels[numVerbose]
	logWriter := os.Stderr

	SetLogger(golog.New(logWriter, logLevel))
	if logLevel == log.Debug {
		// Enable logging from subpackages
		bus.SetLogger(logWriter)
		ws.SetLogger(logWriter)
		media.SetLogger(logWriter)
	}

	cmd := "serve"
	if parser.Active != nil {
		cmd = parser.Active.Name
	}
	err = subcommand(cmd, options)
	if err == nil {
		return
	}

	if err == io.EOF {
		exit(3, "Connection closed.\n")
	}

	switch typedErr := err.(type) {
	case net.Error:
		err = ErrExplain{err, `Disconnected from the peer unexpectedly. Could be a connectivity issue or the server is down. Try again?`}
	case interface{ ErrorCode() int }:
		switch typedErr.ErrorCode() {
		case bus.CodeObjectNotFound:
			err = ErrExplain{err, `No object is published at that path and interface. Check the --path value against what the server exports.`}
		case bus.CodeMethodNotFound:
			err = ErrExplain{err, `The interface does not declare that method. Check the method name against the published interface.`}
		case bus.CodeShapeMismatch:
			err = ErrExplain{err, `The arguments do not match the method's declared shapes. Check the number and types of the JSON values passed.`}
		default:
			err = ErrExplain{err, fmt.Sprintf(`Unexpected bus error occurred: %T (code %d). Please open an issue at https://github.com/objbus/objbus`, typedErr, typedErr.ErrorCode())}
		}
	case ErrExplain:
		// All good.
	default:
		err = ErrExplain{err, fmt.Sprintf(`Error type %T is missing an explanation. Please open an issue at https://github.com/objbus/objbus`, err)}
	}

	if err != nil {
		exit(2, "%s failed: %s\n", cmd, err)
	}
}

func exit(code int, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(code)
}

// ErrExplain annotates an error with an explanation.
type ErrExplain struct {
	cause       error
	explanation string
}

func (err ErrExplain) Error() string {
	return fmt.Sprintf("%s\n -> %s", err.cause, err.explanation)
}
