package allure

// Version is the canonical project version.
// The CLI, the wire protocol, and the embedded bootstrap share this
// version under the lockstep versioning policy.
const Version = "0.4.2"

// ProtocolVersion is the bootstrap wire protocol version. The hello
// frame carries it; the runtime rejects streams carrying any other
// version.
const ProtocolVersion = "1.0.0"
