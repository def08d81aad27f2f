// Package http provides a typed JSON request pipeline shared by API endpoint
// definitions.
//
// A call goes through three steps:
//   - Build: a Request (method, address, ordered headers, ordered query, optional
//     JSON body) becomes a wire request with Accept: application/json
//   - Send: a Transport performs the exchange (net/http or resty)
//   - Classify: the Reply is checked against the single expected status and the
//     caller's Expectation, producing a decoded value or one *Error
//
// Basic Usage:
//
//	client := http.NewClient(
//	    http.NewStdTransport(nil),
//	    http.WithBaseURL("https://api.example.com"),
//	)
//
//	req := http.NewRequest(http.MethodGet, "/users").
//	    WithQueryParam("limit", "10")
//
//	users, err := http.Execute(ctx, client, req, http.JSON[[]User]())
//	if errors.Is(err, http.ErrUnexpectedStatusCode) {
//	    ...
//	}
//
// Endpoints:
//
//	var createUser = http.NewEndpoint[NewUser, User](http.MethodPost, "/users", 201)
//	var deleteUser = http.NewAction(http.MethodDelete, "/users/{id}", 204)
//
//	u, err := createUser.Send(ctx, client, NewUser{Name: "ada"})
//	_, err = deleteUser.Call(ctx, client, http.PathParam("id", u.ID))
//
// NewQuery and NewAction take http.Empty as their request type and never
// attach a payload; NewEndpoint and NewCommand always send the given body.
//
// Asynchronous delivery:
//
// Go returns a channel that receives exactly one Outcome; Dispatch invokes a
// callback exactly once. Calls are independent and may run concurrently.
package http
