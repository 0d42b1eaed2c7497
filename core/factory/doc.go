// Package factory builds pluggable modules such as metrics sinks from
// configuration. A module is named by its type string and carries a map of
// raw settings that the registered factory decodes into its own struct:
//
//	reg := factory.NewRegistry[Sink]()
//	_ = reg.Register("influx", func(conf map[string]any) (Sink, error) {
//	    var c struct {
//	        URL string `json:"url"`
//	    }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newInfluxSink(c.URL), nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "influx", Conf: map[string]any{"url": "http://db:8086"}})
package factory
