package flash

// FlashPayloadFromFile will load the image at filePath and flash it
func (mc *Microcontroller) FlashPayloadFromFile(filePath string, opts ...Option) (*Report, error) {
	bs, err := LoadImage(filePath)
	if err != nil {
		return nil, err
	}
	return mc.FlashPayload(bs, opts...)
}

// FlashPayload will flash the raw image to the start of flash, verify it and
// start it. The port is opened for the duration of the call if it is not
// already open.
func (mc *Microcontroller) FlashPayload(bs []byte, opts ...Option) (*Report, error) {
	if !mc.IsOpen() {
		if err := mc.Open(); err != nil {
			return nil, err
		}
		defer mc.Close()
	}

	opts = append([]Option{WithReadTimeout(mc.ReadTimeout())}, opts...)
	return NewSession(mc, opts...).Run(bs)
}
