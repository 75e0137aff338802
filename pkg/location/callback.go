package location

// Callback receives the unified result of a location request.
type Callback interface {
	OnSuccess(fix Fix)
	OnFailure(err error)
}

// CallbackFuncs adapts a pair of functions to Callback. Nil functions are ignored.
type CallbackFuncs struct {
	Success func(fix Fix)
	Failure func(err error)
}

func (c CallbackFuncs) OnSuccess(fix Fix) {
	if c.Success != nil {
		c.Success(fix)
	}
}

func (c CallbackFuncs) OnFailure(err error) {
	if c.Failure != nil {
		c.Failure(err)
	}
}
