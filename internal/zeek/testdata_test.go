package zeek

const connHeader = "#separator \\x09\n" +
	"#set_separator\t,\n" +
	"#empty_field\t(empty)\n" +
	"#unset_field\t-\n" +
	"#path\tconn\n" +
	"#open\t2018-01-30-17-00-00\n" +
	"#fields\tts\tuid\tid.orig_h\tid.resp_h\tservice\ttunnel_parents\n" +
	"#types\ttime\tstring\taddr\taddr\tstring\tset[string]\n"

const connBody = "1517336042.279652\tCmES5u32sYpV7JYN\t10.55.200.10\t165.227.88.15\tdns\t(empty)\n" +
	"#interim comment\n" +
	"1517336042.090910\tCKpcVw1cz0pKXg0Yq3\t10.55.100.111\t172.217.8.206\t-\tCa,Cb,Cc\n" +
	"1517336043.000000\tCz9\t192.168.1.1\t8.8.8.8\t\t\n" +
	"#close\t2018-01-30-18-00-00\n"

const connLog = connHeader + connBody
